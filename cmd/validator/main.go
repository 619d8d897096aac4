// Command validator is a git pre-receive hook: for each ref update on
// stdin, it diffs old..new and runs it through this repository's
// Detector Registry (pkg/detect), rejecting the push if any detector
// matches. This keeps the teacher's stdin protocol / git-diff shell-out
// / exit-code control flow, but replaces its hand-maintained
// JSON-pattern-file regex source with the same registry the Discovery
// Pipeline itself runs, so a credential family only has to be taught to
// the system once.
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"

	"keyhunter/pkg/detect"
	"keyhunter/pkg/models"
)

// PreReceiveValidator scans each pushed ref's diff for any active
// detector's patterns before the push is accepted.
type PreReceiveValidator struct {
	detectors *detect.Registry
	logger    *log.Logger
}

// NewPreReceiveValidator builds a validator over the given registry
// (NewDefaultRegistry() in production; a stub registry in tests).
func NewPreReceiveValidator(detectors *detect.Registry, logger *log.Logger) *PreReceiveValidator {
	if logger == nil {
		logger = log.New(os.Stdout, "[secret-validator] ", log.LstdFlags)
	}
	return &PreReceiveValidator{detectors: detectors, logger: logger}
}

// ValidateContent runs every active detector over content, flattening
// each detector's DetectedKeys into the lightweight SecretFinding shape
// this command reports in its own log output (never persisted; this is
// a local pre-push gate, not the Discovery Pipeline's durable Finding).
func (v *PreReceiveValidator) ValidateContent(content, filePath string) []models.SecretFinding {
	var findings []models.SecretFinding
	for _, d := range v.detectors.Active() {
		for _, key := range d.Detect(content, filePath) {
			findings = append(findings, models.SecretFinding{
				Type:     key.KeyType,
				Value:    key.Key,
				FilePath: filePath,
			})
		}
	}
	return findings
}

// ProcessPush reads git's pre-receive protocol from stdin
// ("<old-rev> <new-rev> <ref-name>", one line per updated ref) and
// returns an error — which the caller turns into a non-zero exit,
// rejecting the push — the first time any updated ref's diff contains
// a detected credential.
func (v *PreReceiveValidator) ProcessPush(stdin *bufio.Scanner) error {
	for stdin.Scan() {
		line := stdin.Text()
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return fmt.Errorf("invalid pre-receive input: %q", line)
		}

		oldRev, newRev := fields[0], fields[1]
		if strings.HasPrefix(newRev, "0000000") {
			continue // branch deletion, nothing to scan
		}

		findings, err := v.checkDiff(oldRev, newRev)
		if err != nil {
			return fmt.Errorf("diffing %s..%s: %w", oldRev, newRev, err)
		}

		if len(findings) > 0 {
			for _, f := range findings {
				v.logger.Printf("secret detected: %s in %s", f.Type, f.FilePath)
			}
			return fmt.Errorf("push rejected: %d credential(s) detected", len(findings))
		}
	}
	return stdin.Err()
}

func (v *PreReceiveValidator) checkDiff(oldRev, newRev string) ([]models.SecretFinding, error) {
	cmd := exec.Command("git", "diff", oldRev, newRev)
	output, err := cmd.Output()
	if err != nil {
		return nil, err
	}
	return v.ValidateContent(string(output), ""), nil
}

func main() {
	logger := log.New(os.Stdout, "[secret-validator] ", log.LstdFlags)
	validator := NewPreReceiveValidator(detect.NewDefaultRegistry(), logger)

	if err := validator.ProcessPush(bufio.NewScanner(os.Stdin)); err != nil {
		logger.Printf("error: %v", err)
		os.Exit(1)
	}

	logger.Println("no secrets detected")
}
