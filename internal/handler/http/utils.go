package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/identity/internal/service"
	"github.com/utafrali/identity/pkg/httputil"
	"github.com/utafrali/identity/pkg/validator"
)

// UtilsHandler serves the operational endpoints under /api/v1/utils.
type UtilsHandler struct {
	service *service.AuthService
	logger  *slog.Logger
}

func NewUtilsHandler(svc *service.AuthService, logger *slog.Logger) *UtilsHandler {
	return &UtilsHandler{service: svc, logger: logger}
}

type testEmailQuery struct {
	EmailTo string `form:"email_to" validate:"required,email"`
}

// HealthCheck handles GET /api/v1/utils/health-check/
func (h *UtilsHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteMessage(w, http.StatusOK, "Ok")
}

// TestEmail handles POST /api/v1/utils/test-email/
func (h *UtilsHandler) TestEmail(w http.ResponseWriter, r *http.Request) {
	h.sendTestEmail(w, r, false, "Test email sent")
}

// TestBackgroundEmail handles POST /api/v1/utils/test-background-email/
func (h *UtilsHandler) TestBackgroundEmail(w http.ResponseWriter, r *http.Request) {
	h.sendTestEmail(w, r, true, "Notification sent in the background")
}

func (h *UtilsHandler) sendTestEmail(w http.ResponseWriter, r *http.Request, background bool, message string) {
	q := testEmailQuery{EmailTo: r.URL.Query().Get("email_to")}
	if err := validator.Validate(q); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	if err := h.service.SendTestEmail(r.Context(), q.EmailTo, background); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteMessage(w, http.StatusCreated, message)
}
