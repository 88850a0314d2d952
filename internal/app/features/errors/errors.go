// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/fundhub/internal/app/system/httpjson"
)

// NotFound answers unmatched routes with the JSON error shape the rest of
// the API uses. Mount it on the root router before sub-routers so chi
// carries it down to them.
func NotFound(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusNotFound, httpjson.ErrorBody{Error: "no route for " + r.URL.Path})
}

// MethodNotAllowed answers a known path requested with the wrong method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusMethodNotAllowed, httpjson.ErrorBody{Error: r.Method + " is not allowed on " + r.URL.Path})
}
