package httpx

import (
	"net/http"
	"strconv"

	"github.com/nirmaan-commerce/nirmaan/internal/shared"
)

// ActorHeader carries the authenticated customer id. Authentication is
// terminated upstream; the gateway forwards the resolved identity here.
const ActorHeader = "X-Customer-ID"

// ActorID extracts the acting customer from the request.
func ActorID(r *http.Request) (int64, error) {
	raw := r.Header.Get(ActorHeader)
	if raw == "" {
		return 0, shared.Forbidden("missing_actor", "missing %s header", ActorHeader)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.Forbidden("invalid_actor", "invalid %s header", ActorHeader)
	}
	return id, nil
}
