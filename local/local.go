package local

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/PlakarLabs/blobbackup/encryption"
)

const DefaultKeyID = "__default__"

var ErrNoKey = errors.New("no key stored")

func Init(localdir string) error {
	return os.MkdirAll(filepath.Join(localdir, "keys"), 0700)
}

func keyPath(localdir string, keyID string) (string, error) {
	if keyID == "" {
		keyID = DefaultKeyID
	}
	if strings.ContainsAny(keyID, `/\`) || keyID == "." || keyID == ".." {
		return "", fmt.Errorf("invalid key id %q", keyID)
	}
	return filepath.Join(localdir, "keys", keyID), nil
}

func GetKey(localdir string, keyID string) ([]byte, error) {
	pathname, err := keyPath(localdir, keyID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(pathname)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoKey
		}
		return nil, err
	}
	return encryption.ParseKey(string(data))
}

func SetKey(localdir string, keyID string, key []byte) error {
	if err := Init(localdir); err != nil {
		return err
	}
	pathname, err := keyPath(localdir, keyID)
	if err != nil {
		return err
	}
	return os.WriteFile(pathname, []byte(encryption.EncodeKey(key)+"\n"), 0600)
}

func DeleteKey(localdir string, keyID string) error {
	pathname, err := keyPath(localdir, keyID)
	if err != nil {
		return err
	}
	if err := os.Remove(pathname); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNoKey
		}
		return err
	}
	return nil
}
