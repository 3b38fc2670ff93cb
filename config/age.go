package config

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"reflect"
	"regexp"
	"strings"

	"filippo.io/age"
	"github.com/mitchellh/mapstructure"
)

const agePrefix = "age:"

var commentLine = regexp.MustCompile(`(s?)#.*\n`)

// LoadAgeIdentity reads an age key file, ignoring comment lines.
func LoadAgeIdentity(path string) (*age.X25519Identity, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read age key: %w", err)
	}
	return parseAgeIdentity(b)
}

func parseAgeIdentity(b []byte) (*age.X25519Identity, error) {
	c := commentLine.ReplaceAll(b, nil)
	id, err := age.ParseX25519Identity(strings.TrimSpace(string(c)))
	if err != nil {
		return nil, fmt.Errorf("failed to load age key: %w", err)
	}
	return id, nil
}

// DecodeAge decrypts a base64 encoded age payload prefixed with "age:".
func DecodeAge(s string, id age.Identity) (string, error) {
	eb, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(s, agePrefix))
	if err != nil {
		return "", fmt.Errorf("invalid age payload: %w", err)
	}
	d, err := age.Decrypt(bytes.NewReader(eb), id)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt age payload: %w", err)
	}
	b := &bytes.Buffer{}
	if _, err := io.Copy(b, d); err != nil {
		return "", err
	}
	return b.String(), nil
}

// AgeHookFunc decrypts "age:" prefixed strings while decoding config. A
// nil identity leaves values untouched.
func AgeHookFunc(id age.Identity) mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if id == nil || f.Kind() != reflect.String || t.Kind() != reflect.String {
			return data, nil
		}
		s := data.(string)
		if !strings.HasPrefix(s, agePrefix) {
			return data, nil
		}
		return DecodeAge(s, id)
	}
}
