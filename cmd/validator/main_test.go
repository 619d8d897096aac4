package main

import (
	"bufio"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"keyhunter/pkg/detect"
)

func testValidator() *PreReceiveValidator {
	return NewPreReceiveValidator(detect.NewDefaultRegistry(), log.New(os.Stderr, "", 0))
}

func TestValidateContentNoSecrets(t *testing.T) {
	v := testValidator()
	got := v.ValidateContent("this is clean content with nothing to find", "test.txt")
	assert.Empty(t, got)
}

func TestValidateContentDetectsShodanKey(t *testing.T) {
	v := testValidator()
	got := v.ValidateContent("SHODAN_API_KEY=EBUfD8FGHijKLMNopQRstuVWXyz01234", "config.env")

	assert.NotEmpty(t, got)
	for _, f := range got {
		assert.Equal(t, "shodan", f.Type)
		assert.Equal(t, "config.env", f.FilePath)
	}
}

func TestProcessPushRejectsRefWithDeletionMarkerButKeepsScanning(t *testing.T) {
	v := testValidator()
	// A branch-deletion line (new-rev all zeros) must be skipped rather
	// than attempted as a git diff, which would fail against a real repo.
	input := bufio.NewScanner(strings.NewReader("abc123 0000000000000000000000000000000000000000 refs/heads/feature\n"))
	err := v.ProcessPush(input)
	assert.NoError(t, err)
}

func TestProcessPushRejectsMalformedLine(t *testing.T) {
	v := testValidator()
	input := bufio.NewScanner(strings.NewReader("not-enough-fields\n"))
	err := v.ProcessPush(input)
	assert.Error(t, err)
}
