package support

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/barscan/internal/detector"
	"github.com/MeKo-Tech/barscan/internal/pdf"
	"github.com/MeKo-Tech/barscan/internal/reader"
	"github.com/MeKo-Tech/barscan/internal/server"
)

// HTTPTestServerWrapper wraps httptest.Server for integration tests.
type HTTPTestServerWrapper struct {
	Server     *httptest.Server
	TestServer *server.Server
}

func defaultServerConfig() server.Config {
	return server.Config{
		Host:         "127.0.0.1",
		CORSOrigin:   "*",
		MaxUploadMB:  10,
		TimeoutSec:   30,
		OverlayColor: "#ff0000",
		Reader:       reader.DefaultOptions(),
		Detector:     detector.DefaultOptions(),
		PDF:          *pdf.DefaultProcessorConfig(),
	}
}

func (testCtx *TestContext) startTestServer(cfg server.Config) error {
	if testCtx.HTTPTestServer != nil {
		return errors.New("test server already running")
	}
	s, err := server.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	testCtx.HTTPTestServer = &HTTPTestServerWrapper{
		Server:     httptest.NewServer(s.Handler()),
		TestServer: s,
	}
	return nil
}

// StopServer shuts the test server down if one is running.
func (testCtx *TestContext) StopServer() error {
	if testCtx.HTTPTestServer == nil {
		return nil
	}
	testCtx.HTTPTestServer.Server.Close()
	err := testCtx.HTTPTestServer.TestServer.Close()
	testCtx.HTTPTestServer = nil
	return err
}

func (testCtx *TestContext) theBarcodeServerIsRunning() error {
	return testCtx.startTestServer(defaultServerConfig())
}

func (testCtx *TestContext) theBarcodeServerIsRunningWithARateLimitOfPerMinute(n int) error {
	cfg := defaultServerConfig()
	cfg.RateLimit = server.RateLimitConfig{Enabled: true, RequestsPerMinute: n}
	return testCtx.startTestServer(cfg)
}

func (testCtx *TestContext) theBarcodeServerIsRunningWithCORSOrigin(origin string) error {
	cfg := defaultServerConfig()
	cfg.CORSOrigin = origin
	return testCtx.startTestServer(cfg)
}

func (testCtx *TestContext) serverURL(path string) (string, error) {
	if testCtx.HTTPTestServer == nil {
		return "", errors.New("no test server running")
	}
	return testCtx.HTTPTestServer.Server.URL + path, nil
}

func (testCtx *TestContext) do(req *http.Request) error {
	resp, err := testCtx.HTTPTestServer.Server.Client().Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = string(body)
	testCtx.LastHTTPHeaders = make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		testCtx.LastHTTPHeaders[k] = resp.Header.Get(k)
	}
	return nil
}

func (testCtx *TestContext) iSendAGETRequestTo(path string) error {
	url, err := testCtx.serverURL(path)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return testCtx.do(req)
}

// iUploadTo posts a file from the working directory as a multipart form.
// PDFs are sent in the "pdf" field, everything else in "image".
func (testCtx *TestContext) iUploadTo(name, path string) error {
	url, err := testCtx.serverURL(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(testCtx.Path(name))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}

	field := "image"
	if strings.EqualFold(filepath.Ext(name), ".pdf") {
		field = "pdf"
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filepath.Base(name))
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, url, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return testCtx.do(req)
}

func (testCtx *TestContext) iUploadTimesTo(name string, n int, path string) error {
	for range n {
		if err := testCtx.iUploadTo(name, path); err != nil {
			return err
		}
	}
	return nil
}

func (testCtx *TestContext) theResponseStatusShouldBe(status int) error {
	if testCtx.LastHTTPStatusCode != status {
		return fmt.Errorf("response status is %d, want %d\nBody: %s",
			testCtx.LastHTTPStatusCode, status, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(expected string) error {
	if !strings.Contains(testCtx.LastHTTPResponse, expected) {
		return fmt.Errorf("response does not contain %q\nBody: %s", expected, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldBe(name, value string) error {
	if got := testCtx.LastHTTPHeaders[http.CanonicalHeaderKey(name)]; got != value {
		return fmt.Errorf("response header %s is %q, want %q", name, got, value)
	}
	return nil
}

func (testCtx *TestContext) theResponseValuesShouldInclude(value string) error {
	var doc interface{}
	if err := json.Unmarshal([]byte(testCtx.LastHTTPResponse), &doc); err != nil {
		return fmt.Errorf("response is not valid JSON: %w\nBody: %s", err, testCtx.LastHTTPResponse)
	}
	values := collectStrings(doc, "value")
	for _, v := range values {
		if v == value {
			return nil
		}
	}
	return fmt.Errorf("decoded values %v do not include %q", values, value)
}

// RegisterServerSteps registers steps that drive the HTTP server.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the barcode server is running$`, testCtx.theBarcodeServerIsRunning)
	sc.Step(`^the barcode server is running with a rate limit of (\d+) requests per minute$`,
		testCtx.theBarcodeServerIsRunningWithARateLimitOfPerMinute)
	sc.Step(`^the barcode server is running with CORS origin "([^"]*)"$`, testCtx.theBarcodeServerIsRunningWithCORSOrigin)

	sc.Step(`^I send a GET request to "([^"]*)"$`, testCtx.iSendAGETRequestTo)
	sc.Step(`^I upload "([^"]*)" to "([^"]*)"$`, testCtx.iUploadTo)
	sc.Step(`^I upload "([^"]*)" (\d+) times to "([^"]*)"$`, testCtx.iUploadTimesTo)

	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
	sc.Step(`^the response values should include "([^"]*)"$`, testCtx.theResponseValuesShouldInclude)
}
