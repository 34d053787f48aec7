package gcp

import (
	"strings"

	"google.golang.org/api/option"

	"github.com/yungbote/mumble-backend/internal/platform/envutil"
)

// ClientOptionsFromEnv returns credentials for the Google clients. The
// _JSON variable wins; either one may hold inline JSON or a key file path.
// Nil means application default credentials.
func ClientOptionsFromEnv() []option.ClientOption {
	creds := envutil.String("GOOGLE_APPLICATION_CREDENTIALS_JSON", envutil.String("GOOGLE_APPLICATION_CREDENTIALS", ""))
	switch {
	case creds == "":
		return nil
	case strings.HasPrefix(creds, "{"):
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	default:
		return []option.ClientOption{option.WithCredentialsFile(creds)}
	}
}
