package view

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

const flashCookieName = "flash"

// Flash categories.
const (
	FlashSuccess = "success"
	FlashError   = "error"
)

// Flash is a one-shot message shown by the next rendered page.
type Flash struct {
	Category string
	Message  string
}

// SetFlash stores a message for the next rendered page.
func SetFlash(c echo.Context, category, message string) {
	c.SetCookie(&http.Cookie{
		Name:     flashCookieName,
		Value:    url.QueryEscape(category + ":" + message),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// PopFlash returns the pending message, if any, and clears it.
func PopFlash(c echo.Context) *Flash {
	cookie, err := c.Cookie(flashCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	c.SetCookie(&http.Cookie{
		Name:    flashCookieName,
		Value:   "",
		Path:    "/",
		Expires: time.Unix(0, 0),
		MaxAge:  -1,
	})

	raw, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		raw = cookie.Value
	}
	category, message, ok := strings.Cut(raw, ":")
	if !ok {
		return &Flash{Category: FlashSuccess, Message: raw}
	}
	return &Flash{Category: category, Message: message}
}
