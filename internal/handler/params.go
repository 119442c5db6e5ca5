package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// queryParam binds an optional form-style query parameter into dest, which
// must be a pointer to a pointer. dest stays nil when the parameter is absent.
func queryParam(r *http.Request, name string, dest any) error {
	return runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), dest)
}

// pathParam binds a required simple-style path parameter into dest.
func pathParam(r *http.Request, name string, dest any) error {
	return runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), dest,
		runtime.BindStyledParameterOptions{
			ParamLocation: runtime.ParamLocationPath,
			Explode:       false,
			Required:      true,
		})
}

// badParam answers a parameter that failed to bind.
func badParam(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusUnprocessableEntity, requestBody(err.Error()))
}
