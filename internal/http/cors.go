package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

// defaultAllowedOrigins are the production site origins always permitted.
var defaultAllowedOrigins = []string{
	"https://totallytravels.com",
	"https://www.totallytravels.com",
}

// CORSOptions builds the CORS policy: the default production origins plus
// configured extras, and any localhost port so local frontend dev servers
// work regardless of which port Vite picks. Requests without an Origin
// header (curl, server-to-server) bypass CORS entirely.
func CORSOptions(extraOrigins []string) cors.Options {
	allowed := make(map[string]struct{}, len(defaultAllowedOrigins)+len(extraOrigins))
	for _, o := range defaultAllowedOrigins {
		allowed[o] = struct{}{}
	}
	for _, o := range extraOrigins {
		o = strings.TrimSpace(o)
		if o != "" {
			allowed[o] = struct{}{}
		}
	}

	return cors.Options{
		AllowOriginFunc: func(r *http.Request, origin string) bool {
			if strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:") {
				return true
			}
			_, ok := allowed[origin]
			return ok
		},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Correlation-ID"},
		MaxAge:         300,
	}
}
