package render

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"strings"

	"github.com/Skufu/PulseNet/internal/chat"
	"github.com/Skufu/PulseNet/internal/intake"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Load parses every page template. Each page is registered under its file
// name, e.g. "dashboard.html".
func Load() (*template.Template, error) {
	t, err := template.New("").Funcs(template.FuncMap{
		"join": strings.Join,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return t, nil
}

// Static returns the stylesheet tree served under /static.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

type User struct {
	Email   string
	Initial string
}

func NewUser(email string) *User {
	initial := "?"
	if r := []rune(strings.TrimSpace(email)); len(r) > 0 {
		initial = strings.ToUpper(string(r[0]))
	}
	return &User{Email: email, Initial: initial}
}

type Notice struct {
	Level   string
	Message string
}

// Page is the data every template's header and footer read.
type Page struct {
	Title    string
	Language string
	Refresh  int
	User     *User
	Notice   *Notice

	// Chat is nil for signed-out visitors, which hides the widget.
	Chat         []chat.Message
	ChatOpen     bool
	ChatLanguage string
	Languages    []chat.Language
}

type AuthPage struct {
	Page
	SignUp           bool
	ConfirmationSent bool
	Email            string
}

type LegalPage struct {
	Page
	Body    string
	Updated string
}

type ContactForm struct {
	Name    string `form:"name" binding:"required"`
	Email   string `form:"email" binding:"required,email"`
	Clinic  string `form:"clinic"`
	Message string `form:"message" binding:"required"`
}

type ContactPage struct {
	Page
	Form ContactForm
}

type DashboardPage struct {
	Page
	Tab     string
	State   string
	Record  intake.PatientRecord
	Genders []string
	Result  *ResultView
	History []HistoryCard
	// Waited is how many whole seconds the current submission has run.
	Waited  int
}

type ErrorPage struct {
	Page
	Message string
}

type legalDoc struct {
	Title string
	Body  string
}

const legalUpdated = "December 2025"

var legalDocs = map[string]legalDoc{
	"privacy": {
		Title: "Privacy Protocol",
		Body:  "PulseNet follows the Digital Personal Data Protection (DPDP) Act of India. We ensure that patient PII (Personally Identifiable Information) is encrypted at rest. AI analysis is performed on anonymized tokens. No patient data is used to train public LLM models.",
	},
	"guidelines": {
		Title: "Medical Guidelines",
		Body:  "This tool is a Clinical Decision Support System (CDSS), NOT a replacement for a qualified doctor. All AI-generated diagnoses must be validated by a medical professional. If red-flag symptoms (Sepsis, Cardiac Arrest, Stroke) are detected, immediate referral to a Tertiary Care Center is mandatory.",
	},
	"terms": {
		Title: "Terms of Use",
		Body:  "By using PulseNet, clinics agree to maintain medical confidentiality. PulseNet AI is not liable for clinical decisions made based on its suggestions. Usage is restricted to registered primary health centers and verified medical practitioners in India.",
	},
}

// Legal returns the page for one of "privacy", "guidelines" or "terms".
func Legal(kind string, base Page) (LegalPage, bool) {
	doc, ok := legalDocs[kind]
	if !ok {
		return LegalPage{}, false
	}
	base.Title = doc.Title
	return LegalPage{Page: base, Body: doc.Body, Updated: legalUpdated}, true
}
