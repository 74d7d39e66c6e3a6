package utils

import (
	"net/http"
	"os"
)

// DetectFileContentType sniffs the content type of the file from its first 512 bytes.
func DetectFileContentType(fname string) (string, error) {
	file, err := os.Open(fname)
	if err != nil {
		return "", err
	}
	defer file.Close()

	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil {
		return "", err
	}
	return http.DetectContentType(buffer[:n]), nil
}
