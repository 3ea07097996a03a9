package util

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ResolveInboxFile resolves a user-supplied reference to a file inside
// the inbox directory. References must be relative and must not escape
// the inbox; the file must exist and be a regular file.
func ResolveInboxFile(inboxDir, ref string) (string, error) {
	if inboxDir == "" {
		return "", fmt.Errorf("inbox directory is not configured")
	}
	if ref == "" {
		return "", fmt.Errorf("file reference cannot be empty")
	}
	if strings.Contains(ref, "..") {
		return "", fmt.Errorf("file reference contains invalid directory traversal")
	}
	cleanRef := filepath.Clean(ref)
	if filepath.IsAbs(cleanRef) {
		return "", fmt.Errorf("file reference must be relative to the inbox")
	}

	fullPath := filepath.Join(inboxDir, cleanRef)
	info, err := os.Stat(fullPath)
	if err != nil {
		return "", fmt.Errorf("cannot access inbox file: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("inbox reference is a directory, not a file: %s", ref)
	}
	return fullPath, nil
}

// SanitizeFilename removes invalid/unsupported characters that cannot be used
// in file names. This function handles characters that are invalid on Windows,
// macOS, and Linux filesystems. Use this for individual file name components
// (not full paths).
func SanitizeFilename(name string) string {
	if name == "" {
		return ""
	}

	// Remove null bytes and control characters
	re := regexp.MustCompile(`[\x00-\x1f\x7f]`)
	safeName := re.ReplaceAllString(name, "")

	// Remove invalid characters for file names: \ / : * ? " < > |
	re = regexp.MustCompile(`[\\/:*?"<>|]`)
	safeName = re.ReplaceAllString(safeName, "-")

	// Remove leading/trailing spaces and dots (Windows doesn't allow these)
	safeName = strings.Trim(safeName, " .")

	// Collapse whitespace runs into single dashes so generated audio
	// files stay shell-friendly.
	re = regexp.MustCompile(`\s+`)
	safeName = re.ReplaceAllString(safeName, "-")

	// Remove consecutive dashes and replace with single dash
	re = regexp.MustCompile(`-+`)
	safeName = re.ReplaceAllString(safeName, "-")

	// Remove leading/trailing dashes
	safeName = strings.Trim(safeName, "-")

	// Handle reserved names on Windows (CON, PRN, AUX, NUL, COM1-9, LPT1-9)
	reservedNames := map[string]bool{
		"CON": true, "PRN": true, "AUX": true, "NUL": true,
		"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
		"COM6": true, "COM7": true, "COM8": true, "COM9": true,
		"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
		"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
	}
	if reservedNames[strings.ToUpper(safeName)] {
		safeName = safeName + "_"
	}

	return safeName
}
