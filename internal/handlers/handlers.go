package handlers

import (
	"errors"
	"net/http"

	"github.com/01moynul/qr-inventory/internal/apperr"
	"github.com/01moynul/qr-inventory/internal/auth"
	"github.com/01moynul/qr-inventory/internal/middleware"
	"github.com/01moynul/qr-inventory/internal/qrcode"
	"github.com/01moynul/qr-inventory/internal/scanner"
	"github.com/01moynul/qr-inventory/internal/sheets"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers struct holds all dependencies for our handlers.
type Handlers struct {
	Catalog    *sheets.Catalog
	Sessions   *auth.Manager
	Tokens     *auth.TokenIssuer
	OAuth      *auth.Provider
	Scanners   *scanner.Registry
	Decoder    *qrcode.ImageDecoder
	QRCodeSize int
	Log        *zap.Logger
}

// session returns the request's session. Routes using it sit behind
// AuthMiddleware, so a miss means the router is misconfigured.
func (h *Handlers) session(c *gin.Context) (*auth.Session, bool) {
	sess, ok := middleware.CurrentSession(c)
	if !ok {
		h.fail(c, apperr.RemoteUnavailable("Please sign in again."))
		return nil, false
	}
	return sess, true
}

// fail writes err as a JSON error reply. An upstream 401 means Google no
// longer accepts the token, so the session is ended as well.
func (h *Handlers) fail(c *gin.Context, err error) {
	if sess, ok := middleware.CurrentSession(c); ok && rejectedToken(err) {
		h.Scanners.Close(sess.ID)
		if signOutErr := h.Sessions.SignOut(c.Request.Context(), sess.ID); signOutErr != nil {
			h.Log.Error("Failed to end rejected session", zap.Error(signOutErr))
		}
		err = &apperr.Error{Kind: apperr.KindRemoteUnavailable, Message: "Session expired. Please sign in again.", Err: err}
	}

	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		h.Log.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, apperr.Response(err))
}

func rejectedToken(err error) bool {
	var appErr *apperr.Error
	return errors.As(err, &appErr) && appErr.Kind == apperr.KindRemoteRequest && appErr.Status == http.StatusUnauthorized
}
