package api

import (
	"net/http"

	"github.com/snarg/meeting-intel/internal/credentials"
)

type credentialsResponse struct {
	SecretsFile string               `json:"secrets_file,omitempty"`
	Credentials []credentials.Status `json:"credentials"`
	Error       string               `json:"error,omitempty"`
}

// CredentialsHandler handles GET /api/v1/credentials. It reports which named
// secrets resolve, never their values.
func CredentialsHandler(resolver *credentials.Resolver, secretsFile string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		statuses, err := resolver.Status()
		resp := credentialsResponse{SecretsFile: secretsFile, Credentials: statuses}
		if err != nil {
			resp.Error = err.Error()
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}
