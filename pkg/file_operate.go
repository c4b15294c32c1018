package pkg

import (
	"context"
	"os"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// CheckFileExist 检查文件是否存在
func CheckFileExist(filePath string) (bool, error) {
	_, err := os.Lstat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ReadText reads filePath as UTF-8 text. A leading byte order mark is dropped.
func ReadText(filePath string) (string, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", errors.Errorf("%s is not valid UTF-8", filePath)
	}
	if len(raw) >= 3 && raw[0] == 0xEF && raw[1] == 0xBB && raw[2] == 0xBF {
		raw = raw[3:]
	}
	return string(raw), nil
}

// ReadTextContext is ReadText that stops waiting once ctx is done.
func ReadTextContext(ctx context.Context, filePath string) (string, error) {
	type result struct {
		text string
		err  error
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ch := make(chan result, 1)
	go func() {
		text, err := ReadText(filePath)
		ch <- result{text: text, err: err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		return r.text, r.err
	}
}
