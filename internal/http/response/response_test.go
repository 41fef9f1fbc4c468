package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/fleet-backend/internal/domain"
)

func run(t *testing.T, err error, msgs Messages) (int, ErrorEnvelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	RespondDomainError(c, err, msgs)
	var body ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return rec.Code, body
}

func TestRespondDomainErrorUsesOverrides(t *testing.T) {
	status, body := run(t, fmt.Errorf("boat 4: %w", domain.ErrNotFound), Messages{
		http.StatusNotFound: "No boat with this boat_id exists",
	})
	if status != http.StatusNotFound || body.Error != "No boat with this boat_id exists" {
		t.Fatalf("got %d %+v", status, body)
	}
}

func TestRespondDomainErrorHidesInternals(t *testing.T) {
	status, body := run(t, domain.StoreError("get Boats:1", errors.New("dial tcp 10.0.0.1:5432")), nil)
	if status != http.StatusInternalServerError || body.Error != internalMessage {
		t.Fatalf("got %d %+v", status, body)
	}
}

func TestErrorEnvelopeKey(t *testing.T) {
	raw, err := json.Marshal(ErrorEnvelope{Error: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != `{"Error":"x"}` {
		t.Fatalf("got %s", raw)
	}
}
