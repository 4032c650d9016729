package utils

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SupportVideoExt checks if video container ext is supported
func SupportVideoExt(ext string) bool {
	return ext == ".mp4" || ext == ".webm" || ext == ".mov" || ext == ".mkv"
}

// MakeStorageKey prepares object key for a video response: videos/{session}/{question}/{name}
func MakeStorageKey(sessionID, questionID, name string) (string, error) {
	if sessionID == "" {
		return "", fmt.Errorf("no session ID")
	}
	if questionID == "" {
		return "", fmt.Errorf("no question ID")
	}
	fn, err := cleanFileName(name)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("videos/%s/%s/%s", sessionID, questionID, fn), nil
}

// SessionPrefix returns the object key prefix holding all of a session's videos
func SessionPrefix(sessionID string) string {
	return fmt.Sprintf("videos/%s/", sessionID)
}

func cleanFileName(name string) (string, error) {
	res := filepath.Base(strings.ReplaceAll(name, " ", "_"))
	if res == "" || res == "." || res == string(filepath.Separator) {
		return "", fmt.Errorf("wrong file name '%s'", name)
	}
	ext := filepath.Ext(res)
	return strings.TrimSuffix(res, ext) + strings.ToLower(ext), nil
}
