package httpx

import "net/http"

// healthHandler reports process liveness. It deliberately does not touch the
// database or Redis; orchestrators restart on a failing liveness probe and a
// slow dependency should not cause that.
func healthHandler(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
