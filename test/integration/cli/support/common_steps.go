package support

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"

	"github.com/cucumber/godog"
	"gopkg.in/yaml.v3"
)

const commandTimeout = 60 * time.Second

// iRunCommand runs a CLI command inside the working directory. A leading
// "barscan" is replaced by the binary under test.
func (testCtx *TestContext) iRunCommand(command string) error {
	testCtx.LastCommand = command

	parts := strings.Fields(command)
	if len(parts) == 0 {
		return errors.New("empty command")
	}
	if parts[0] == "barscan" {
		parts[0] = testCtx.Binary
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...) //nolint:gosec // G204: commands come from feature files
	cmd.Dir = testCtx.WorkDir
	cmd.Env = append(os.Environ(), testCtx.EnvVars...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	testCtx.LastOutput = stdout.String()
	testCtx.LastStderr = stderr.String()
	testCtx.LastError = err
	testCtx.LastExitCode = 0
	if err != nil {
		exitError := &exec.ExitError{}
		if errors.As(err, &exitError) {
			testCtx.LastExitCode = exitError.ExitCode()
		} else {
			testCtx.LastExitCode = -1
		}
	}
	return nil
}

func (testCtx *TestContext) theCommandShouldSucceed() error {
	if testCtx.LastExitCode != 0 {
		return fmt.Errorf("command failed with exit code %d: %w\nStdout: %s\nStderr: %s",
			testCtx.LastExitCode, testCtx.LastError, testCtx.LastOutput, testCtx.LastStderr)
	}
	return nil
}

func (testCtx *TestContext) theCommandShouldFail() error {
	if testCtx.LastExitCode == 0 {
		return fmt.Errorf("command succeeded when it should have failed\nOutput: %s", testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldContain(expected string) error {
	if !strings.Contains(testCtx.LastOutput, expected) {
		return fmt.Errorf("output does not contain %q\nOutput: %s", expected, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldNotContain(unexpected string) error {
	if strings.Contains(testCtx.LastOutput, unexpected) {
		return fmt.Errorf("output contains %q\nOutput: %s", unexpected, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldBeEmpty() error {
	if strings.TrimSpace(testCtx.LastOutput) != "" {
		return fmt.Errorf("expected empty output, got: %s", testCtx.LastOutput)
	}
	return nil
}

// theErrorShouldMention checks stderr, where cobra reports errors.
func (testCtx *TestContext) theErrorShouldMention(expected string) error {
	if !strings.Contains(testCtx.LastStderr, expected) {
		return fmt.Errorf("stderr does not mention %q\nStderr: %s", expected, testCtx.LastStderr)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldBeValidJSON() error {
	_, err := testCtx.outputJSON()
	return err
}

func (testCtx *TestContext) theOutputShouldBeValidYAML() error {
	var v interface{}
	if err := yaml.Unmarshal([]byte(testCtx.LastOutput), &v); err != nil {
		return fmt.Errorf("output is not valid YAML: %w\nOutput: %s", err, testCtx.LastOutput)
	}
	if v == nil {
		return errors.New("YAML output is empty")
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldBeValidCSV() error {
	_, err := testCtx.outputCSV()
	return err
}

func (testCtx *TestContext) theCSVHeaderShouldBe(header string) error {
	records, err := testCtx.outputCSV()
	if err != nil {
		return err
	}
	want := strings.Split(header, ",")
	if !slices.Equal(records[0], want) {
		return fmt.Errorf("CSV header is %v, want %v", records[0], want)
	}
	return nil
}

func (testCtx *TestContext) theCSVShouldHaveDataRows(n int) error {
	records, err := testCtx.outputCSV()
	if err != nil {
		return err
	}
	if got := len(records) - 1; got != n {
		return fmt.Errorf("CSV has %d data rows, want %d\nOutput: %s", got, n, testCtx.LastOutput)
	}
	return nil
}

// theJSONValuesShouldInclude looks for a decoded payload anywhere in the
// JSON output.
func (testCtx *TestContext) theJSONValuesShouldInclude(value string) error {
	doc, err := testCtx.outputJSON()
	if err != nil {
		return err
	}
	values := collectStrings(doc, "value")
	if !slices.Contains(values, value) {
		return fmt.Errorf("decoded values %v do not include %q", values, value)
	}
	return nil
}

// theJSONShouldListEntries counts the entries of a top-level array.
func (testCtx *TestContext) theJSONShouldListEntries(n int, key string) error {
	doc, err := testCtx.outputJSON()
	if err != nil {
		return err
	}
	obj, ok := doc.(map[string]interface{})
	if !ok {
		return errors.New("JSON output is not an object")
	}
	list, ok := obj[key].([]interface{})
	if !ok {
		return fmt.Errorf("JSON output has no %q array", key)
	}
	if len(list) != n {
		return fmt.Errorf("JSON %q has %d entries, want %d", key, len(list), n)
	}
	return nil
}

// theJSONShouldReportRegions sums the "regions" arrays found anywhere in
// the JSON output.
func (testCtx *TestContext) theJSONShouldReportRegions(n int) error {
	doc, err := testCtx.outputJSON()
	if err != nil {
		return err
	}
	if got := countArrays(doc, "regions"); got != n {
		return fmt.Errorf("JSON reports %d regions, want %d", got, n)
	}
	return nil
}

func (testCtx *TestContext) theFileShouldExist(name string) error {
	if _, err := os.Stat(testCtx.Path(name)); err != nil {
		return fmt.Errorf("file %s does not exist: %w", name, err)
	}
	return nil
}

func (testCtx *TestContext) theFileShouldContain(name, expected string) error {
	data, err := os.ReadFile(testCtx.Path(name))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if !strings.Contains(string(data), expected) {
		return fmt.Errorf("file %s does not contain %q\nContent: %s", name, expected, data)
	}
	return nil
}

func (testCtx *TestContext) theEnvironmentVariableIsSetTo(name, value string) error {
	testCtx.AddEnvVar(name, value)
	return nil
}

func (testCtx *TestContext) aFileWithContent(name string, content *godog.DocString) error {
	return os.WriteFile(testCtx.Path(name), []byte(content.Content), 0o600)
}

func (testCtx *TestContext) outputJSON() (interface{}, error) {
	var v interface{}
	if err := json.Unmarshal([]byte(testCtx.LastOutput), &v); err != nil {
		return nil, fmt.Errorf("output is not valid JSON: %w\nOutput: %s", err, testCtx.LastOutput)
	}
	return v, nil
}

func (testCtx *TestContext) outputCSV() ([][]string, error) {
	records, err := csv.NewReader(strings.NewReader(testCtx.LastOutput)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("output is not valid CSV: %w\nOutput: %s", err, testCtx.LastOutput)
	}
	if len(records) == 0 {
		return nil, errors.New("CSV output is empty")
	}
	return records, nil
}

// collectStrings returns every string stored under key at any depth.
func collectStrings(v interface{}, key string) []string {
	var out []string
	switch t := v.(type) {
	case map[string]interface{}:
		for k, child := range t {
			if s, ok := child.(string); ok && k == key {
				out = append(out, s)
				continue
			}
			out = append(out, collectStrings(child, key)...)
		}
	case []interface{}:
		for _, child := range t {
			out = append(out, collectStrings(child, key)...)
		}
	}
	return out
}

// countArrays sums the lengths of every array stored under key.
func countArrays(v interface{}, key string) int {
	n := 0
	switch t := v.(type) {
	case map[string]interface{}:
		for k, child := range t {
			if list, ok := child.([]interface{}); ok && k == key {
				n += len(list)
				continue
			}
			n += countArrays(child, key)
		}
	case []interface{}:
		for _, child := range t {
			n += countArrays(child, key)
		}
	}
	return n
}

// RegisterCommonSteps registers command execution and output steps.
func (testCtx *TestContext) RegisterCommonSteps(sc *godog.ScenarioContext) {
	sc.Step(`^I run "([^"]*)"$`, testCtx.iRunCommand)
	sc.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	sc.Step(`^the command should fail$`, testCtx.theCommandShouldFail)
	sc.Step(`^the environment variable "([^"]*)" is set to "([^"]*)"$`, testCtx.theEnvironmentVariableIsSetTo)
	sc.Step(`^a file "([^"]*)" with content:$`, testCtx.aFileWithContent)

	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^the output should not contain "([^"]*)"$`, testCtx.theOutputShouldNotContain)
	sc.Step(`^the output should be empty$`, testCtx.theOutputShouldBeEmpty)
	sc.Step(`^the error should mention "([^"]*)"$`, testCtx.theErrorShouldMention)

	sc.Step(`^the output should be valid JSON$`, testCtx.theOutputShouldBeValidJSON)
	sc.Step(`^the output should be valid YAML$`, testCtx.theOutputShouldBeValidYAML)
	sc.Step(`^the output should be valid CSV$`, testCtx.theOutputShouldBeValidCSV)
	sc.Step(`^the CSV header should be "([^"]*)"$`, testCtx.theCSVHeaderShouldBe)
	sc.Step(`^the CSV should have (\d+) data rows?$`, testCtx.theCSVShouldHaveDataRows)
	sc.Step(`^the decoded values should include "([^"]*)"$`, testCtx.theJSONValuesShouldInclude)
	sc.Step(`^the JSON should list (\d+) (images|documents)$`, testCtx.theJSONShouldListEntries)
	sc.Step(`^the JSON should report (\d+) regions?$`, testCtx.theJSONShouldReportRegions)

	sc.Step(`^the file "([^"]*)" should exist$`, testCtx.theFileShouldExist)
	sc.Step(`^the file "([^"]*)" should contain "([^"]*)"$`, testCtx.theFileShouldContain)
}

// splitList splits a comma separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
