package upload

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const (
	uploadPath   = "/api/recordings/upload/"
	completePath = "/api/recordings/%d/complete-request/"
)

func setBearer(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
}

// errorMessage достает текст ошибки из JSON {"error": ...}, иначе отдает тело как есть.
func errorMessage(body []byte, status int) string {
	var payload struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Detail != "" {
			return payload.Detail
		}
	}

	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}

	return fmt.Sprintf("Server responded with status %d", status)
}

func success(status int) bool {
	return status >= 200 && status < 300
}
