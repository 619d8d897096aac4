package main

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"keyhunter/pkg/httpclient"
	"keyhunter/pkg/models"
	"keyhunter/pkg/tokenpool"
	"keyhunter/pkg/validate"
)

func testServer() *server {
	return &server{
		validators: validate.NewDefaultRegistry(nil),
		gates:      tokenpool.NewRegistry(),
		http:       httpclient.New(5 * time.Second),
		logger:     log.New(os.Stderr, "", 0),
	}
}

func TestHealthEndpoint(t *testing.T) {
	router := testServer().routes()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestValidatorsEndpointListsRegisteredKeyTypes(t *testing.T) {
	router := testServer().routes()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/validators", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Validators []string `json:"validators"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body.Validators, "shodan")
	assert.Contains(t, body.Validators, "openai")
}

func TestValidateSecretRejectsUnknownKeyType(t *testing.T) {
	router := testServer().routes()

	reqBody, err := json.Marshal(models.ValidationRequest{
		Secret: models.SecretFinding{Type: "not-a-real-service", Value: "whatever"},
	})
	assert.NoError(t, err)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/validate/secret", bytes.NewBuffer(reqBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp models.ValidationResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.IsValid)
}
