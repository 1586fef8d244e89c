package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"canteen/internal/auth"
	"canteen/internal/model"
	"canteen/internal/nutrition"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page names.
const (
	PageIndex      = "index.html"
	PageFoodDetail = "food_detail.html"
	PageDashboard  = "dashboard.html"
	PageAddFood    = "add_food.html"
	PageEditFood   = "edit_food.html"
	PageLogin      = "login.html"
	PageRegister   = "register.html"
)

var pages = []string{
	PageIndex,
	PageFoodDetail,
	PageDashboard,
	PageAddFood,
	PageEditFood,
	PageLogin,
	PageRegister,
}

// Page is the value every template executes against.
type Page struct {
	User  *model.User
	Flash *Flash
	Data  any
}

// Renderer implements echo.Renderer with the embedded page templates, each
// parsed together with the shared layout.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses all templates. imageURL turns a stored image reference
// into a URL the browser can load.
func NewRenderer(imageURL func(ref string) string) (*Renderer, error) {
	funcs := template.FuncMap{
		"imageURL":      imageURL,
		"price":         formatPrice,
		"date":          formatDate,
		"nutritionKeys": func() []string { return nutrition.Keys },
	}

	r := &Renderer{pages: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		tpl, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[name] = tpl
	}
	return r, nil
}

// Render implements echo.Renderer. It wraps data in a Page carrying the current
// principal and any pending flash message.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	tpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	page := Page{Data: data}
	if c != nil {
		page.User = auth.PrincipalFromContext(c)
		page.Flash = PopFlash(c)
	}
	return tpl.ExecuteTemplate(w, "layout", page)
}

func formatPrice(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func formatDate(t time.Time) string {
	return t.Format(model.DateLayout)
}

// ImageURL returns a resolver that maps references through resolve and
// leaves absolute URLs untouched.
func ImageURL(resolve func(ref string) string) func(string) string {
	return func(ref string) string {
		if ref == "" {
			return ""
		}
		if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "/") {
			return ref
		}
		return resolve(ref)
	}
}
