package pdf

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PasswordCredentials contains the passwords for a PDF file.
type PasswordCredentials struct {
	UserPassword  string `json:"user_password,omitempty" yaml:"user_password,omitempty"`
	OwnerPassword string `json:"owner_password,omitempty" yaml:"owner_password,omitempty"`
}

// Empty reports whether no password is set.
func (c *PasswordCredentials) Empty() bool {
	return c == nil || (c.UserPassword == "" && c.OwnerPassword == "")
}

// PasswordHandler decrypts password-protected PDF files.
type PasswordHandler struct {
	allowPasswordPrompt bool
	defaultCredentials  *PasswordCredentials
	in                  io.Reader
	out                 io.Writer
}

// NewPasswordHandler creates a password handler. With allowPrompt set,
// DecryptPDF asks on stdin when the given credentials fail.
func NewPasswordHandler(allowPrompt bool) *PasswordHandler {
	return &PasswordHandler{
		allowPasswordPrompt: allowPrompt,
		in:                  os.Stdin,
		out:                 os.Stderr,
	}
}

// SetDefaultCredentials sets credentials used when DecryptPDF gets none.
func (h *PasswordHandler) SetDefaultCredentials(creds *PasswordCredentials) {
	h.defaultCredentials = creds
}

// SetPromptIO replaces the prompt input and output streams.
func (h *PasswordHandler) SetPromptIO(in io.Reader, out io.Writer) {
	h.in = in
	h.out = out
}

// IsEncrypted reports whether filename needs a password to be read.
func (h *PasswordHandler) IsEncrypted(filename string) (bool, error) {
	_, err := api.PageCountFile(filename)
	if err != nil {
		if IsPasswordError(err) {
			return true, nil
		}
		return false, fmt.Errorf("failed to check PDF encryption status: %w", err)
	}
	return false, nil
}

// DecryptPDF writes a decrypted copy of filename to a temporary file and
// returns its path. An unencrypted file is returned as is. The caller
// removes the copy with CleanupTempFile.
func (h *PasswordHandler) DecryptPDF(filename string, creds *PasswordCredentials) (string, error) {
	encrypted, err := h.IsEncrypted(filename)
	if err != nil {
		return "", err
	}
	if !encrypted {
		return filename, nil
	}

	tempFileName, err := createTempFile()
	if err != nil {
		return "", err
	}

	conf := h.decryptionConfig(creds)
	err = api.DecryptFile(filename, tempFileName, conf)
	if err != nil && h.allowPasswordPrompt {
		slog.Debug("Decryption with given credentials failed", "file", filename, "error", err)
		var prompted *PasswordCredentials
		if prompted, err = h.promptForPasswords(filename); err == nil {
			conf.UserPW = prompted.UserPassword
			conf.OwnerPW = prompted.OwnerPassword
			err = api.DecryptFile(filename, tempFileName, conf)
		}
	}
	if err != nil {
		_ = os.Remove(tempFileName)
		return "", fmt.Errorf("failed to decrypt PDF: %w", err)
	}
	return tempFileName, nil
}

func (h *PasswordHandler) decryptionConfig(creds *PasswordCredentials) *model.Configuration {
	conf := model.NewDefaultConfiguration()
	if creds.Empty() {
		creds = h.defaultCredentials
	}
	if creds != nil {
		conf.UserPW = creds.UserPassword
		conf.OwnerPW = creds.OwnerPassword
	}
	return conf
}

func createTempFile() (string, error) {
	tempFile, err := os.CreateTemp("", "decrypted-*.pdf")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	_ = tempFile.Close()
	return tempFile.Name(), nil
}

// promptForPasswords reads a user password and, if that is empty, an owner
// password, one line each.
func (h *PasswordHandler) promptForPasswords(filename string) (*PasswordCredentials, error) {
	rd := bufio.NewReader(h.in)
	readLine := func(prompt string) (string, error) {
		_, _ = fmt.Fprint(h.out, prompt)
		line, err := rd.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	_, _ = fmt.Fprintf(h.out, "The PDF file %q is password protected.\n", filename)
	creds := &PasswordCredentials{}
	var err error
	if creds.UserPassword, err = readLine("User password (Enter to skip): "); err != nil {
		return nil, fmt.Errorf("failed to read user password: %w", err)
	}
	if creds.UserPassword == "" {
		if creds.OwnerPassword, err = readLine("Owner password (Enter to skip): "); err != nil {
			return nil, fmt.Errorf("failed to read owner password: %w", err)
		}
	}
	if creds.Empty() {
		return nil, errors.New("no passwords provided")
	}
	return creds, nil
}

// CleanupTempFile removes a decrypted copy made by DecryptPDF. Other paths
// are left alone.
func (h *PasswordHandler) CleanupTempFile(filename string) error {
	if filename == "" {
		return nil
	}
	base := strings.ToLower(filepath.Base(filename))
	if strings.HasPrefix(base, "decrypted-") && strings.HasSuffix(base, ".pdf") {
		return os.Remove(filename)
	}
	return nil
}

// IsPasswordError reports whether err looks like a password or encryption
// failure.
func IsPasswordError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	for _, keyword := range []string{"password", "encrypted", "decrypt", "authentication", "unauthorized", "invalid credentials"} {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}
