package rest

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// loadSession reads a persisted session. Returns errNoSessionFile when
// none exists; a corrupt file is treated the same way.
func loadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errNoSessionFile
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, errNoSessionFile
	}
	if sess.AccessToken == "" {
		return nil, errNoSessionFile
	}
	return &sess, nil
}

// saveSession writes the session with mode 0600, creating the config
// directory if needed.
func saveSession(path string, sess *Session) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

func removeSession(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
