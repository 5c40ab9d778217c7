package web

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Skufu/PulseNet/internal/auth"
	"github.com/Skufu/PulseNet/internal/chat"
	"github.com/Skufu/PulseNet/internal/diagnosis"
	"github.com/Skufu/PulseNet/internal/intake"
	"github.com/Skufu/PulseNet/internal/render"
)

const submitRefreshSeconds = 2

// page fills the header and footer data. Signed-in visitors get their
// dashboard's chat widget on every page.
func (h *handler) page(c *gin.Context, title string) (render.Page, *Dashboard) {
	p := render.Page{
		Title:     title,
		Language:  h.deps.DefaultLanguage,
		Languages: chat.Languages,
	}
	s := h.currentSession(c)
	if s == nil {
		return p, nil
	}
	p.User = render.NewUser(s.Email)

	d, err := h.dashboards.Get(c.Request.Context(), s.UserID)
	if err != nil {
		h.logger.Error().Err(err).Str("doctor_id", s.UserID).Msg("open dashboard")
		return p, nil
	}
	p.Language = d.Store.Language()
	p.Chat = d.Chat.Messages()
	p.ChatOpen, p.ChatLanguage = d.chatState()
	p.Notice = d.TakeNotice()
	return p, d
}

func (h *handler) dashboardFor(c *gin.Context) (*auth.Session, *Dashboard, bool) {
	s := h.currentSession(c)
	d, err := h.dashboards.Get(c.Request.Context(), s.UserID)
	if err != nil {
		h.logger.Error().Err(err).Str("doctor_id", s.UserID).Msg("open dashboard")
		h.renderError(c, http.StatusServiceUnavailable, "Your saved draft could not be loaded. Please try again shortly.")
		return nil, nil, false
	}
	return s, d, true
}

func (h *handler) renderError(c *gin.Context, status int, msg string) {
	p, _ := h.page(c, "Something went wrong")
	c.HTML(status, "error.html", render.ErrorPage{Page: p, Message: msg})
}

func (h *handler) landing(c *gin.Context) {
	if h.currentSession(c) != nil {
		c.Redirect(http.StatusFound, "/dashboard")
		return
	}
	p, _ := h.page(c, "Home")
	c.HTML(http.StatusOK, "landing.html", p)
}

func (h *handler) legal(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, _ := h.page(c, "")
		lp, ok := render.Legal(kind, p)
		if !ok {
			c.Redirect(http.StatusFound, "/")
			return
		}
		c.HTML(http.StatusOK, "legal.html", lp)
	}
}

func (h *handler) contactPage(c *gin.Context) {
	p, _ := h.page(c, "Contact Support")
	c.HTML(http.StatusOK, "contact.html", render.ContactPage{Page: p})
}

func (h *handler) contactSubmit(c *gin.Context) {
	var form render.ContactForm
	if err := c.ShouldBind(&form); err != nil {
		p, _ := h.page(c, "Contact Support")
		p.Notice = &render.Notice{Level: "error", Message: "Failed to send message. Please try again."}
		c.HTML(http.StatusBadRequest, "contact.html", render.ContactPage{Page: p, Form: form})
		return
	}

	h.logger.Info().
		Str("request_id", c.GetString(requestIDKey)).
		Str("from", form.Email).
		Str("doctor", form.Name).
		Str("clinic", form.Clinic).
		Int("message_len", len(form.Message)).
		Msg("support request")

	p, _ := h.page(c, "Contact Support")
	p.Notice = &render.Notice{Level: "success", Message: "Message sent! We'll contact your clinic soon."}
	c.HTML(http.StatusOK, "contact.html", render.ContactPage{Page: p})
}

func (h *handler) dashboard(c *gin.Context) {
	_, d, ok := h.dashboardFor(c)
	if !ok {
		return
	}
	p, _ := h.page(c, "Dashboard")

	state := d.Machine.State()
	view := render.DashboardPage{
		Page:    p,
		Tab:     "diagnose",
		State:   state.String(),
		Record:  d.Store.Record(),
		Genders: intake.Genders,
	}
	if state == diagnosis.Submitting {
		view.Refresh = submitRefreshSeconds
		view.Waited = int(time.Since(d.Machine.Since()).Seconds())
	}
	if state == diagnosis.Success {
		rv := render.NewResultView(d.Machine.Result())
		view.Result = &rv
	}
	c.HTML(http.StatusOK, "dashboard.html", view)
}

func (h *handler) history(c *gin.Context) {
	s, _, ok := h.dashboardFor(c)
	if !ok {
		return
	}
	p, _ := h.page(c, "History")

	var cards []render.HistoryCard
	if h.deps.Records != nil {
		records, err := h.deps.Records.DoctorRecords(c.Request.Context(), s.Email)
		if err != nil {
			h.logger.Warn().Err(err).Str("doctor_id", s.UserID).Msg("fetch history")
			p.Notice = &render.Notice{Level: "error", Message: "Unable to load your diagnostic history"}
		} else {
			cards = render.HistoryCards(records)
		}
	}
	c.HTML(http.StatusOK, "dashboard.html", render.DashboardPage{Page: p, Tab: "profile", History: cards})
}

// applyForm merges the posted intake fields into the draft.
func (h *handler) applyForm(c *gin.Context, d *Dashboard) error {
	if err := c.Request.ParseForm(); err != nil {
		return err
	}
	patient, vitals := intake.PatchesFromForm(c.Request.PostForm)
	ctx := c.Request.Context()
	perr := d.Store.SetPatientField(ctx, patient)
	verr := d.Store.SetVitals(ctx, vitals)
	return errors.Join(perr, verr)
}

func (h *handler) saveDraft(c *gin.Context) {
	_, d, ok := h.dashboardFor(c)
	if !ok {
		return
	}
	if err := h.applyForm(c, d); err != nil {
		h.logger.Warn().Err(err).Msg("save draft")
		d.Flash("error", "Draft could not be saved")
	} else {
		d.Flash("success", "Draft saved")
	}
	c.Redirect(http.StatusSeeOther, "/dashboard")
}

func (h *handler) diagnose(c *gin.Context) {
	s, d, ok := h.dashboardFor(c)
	if !ok {
		return
	}
	if d.Machine.State() == diagnosis.Idle {
		if err := h.applyForm(c, d); err != nil {
			h.logger.Warn().Err(err).Str("doctor_id", s.UserID).Msg("persist draft before submit")
		}
	}

	id := diagnosis.Identity{DoctorID: s.UserID, DoctorEmail: s.Email}
	// The analyzer outlives this request; the api client's timeout bounds it.
	ctx := context.WithoutCancel(c.Request.Context())
	if _, err := d.Machine.Submit(ctx, d.Store.Record(), id, d.Store.Language()); err != nil {
		var verr *diagnosis.ValidationError
		if !errors.As(err, &verr) {
			h.logger.Debug().Err(err).Str("doctor_id", s.UserID).Msg("submit ignored")
		}
	}
	c.Redirect(http.StatusSeeOther, "/dashboard")
}

func (h *handler) newPatient(c *gin.Context) {
	s, d, ok := h.dashboardFor(c)
	if !ok {
		return
	}
	if err := d.Machine.NewPatient(); err != nil {
		h.logger.Debug().Err(err).Str("doctor_id", s.UserID).Msg("new patient ignored")
		c.Redirect(http.StatusSeeOther, "/dashboard")
		return
	}
	if err := d.Store.Reset(c.Request.Context()); err != nil {
		h.logger.Warn().Err(err).Str("doctor_id", s.UserID).Msg("reset draft")
	}
	c.Redirect(http.StatusSeeOther, "/dashboard")
}

func (h *handler) setLanguage(c *gin.Context) {
	_, d, ok := h.dashboardFor(c)
	if !ok {
		return
	}
	lang := c.PostForm("language")
	if chat.Supported(lang) {
		if err := d.Store.SetLanguage(c.Request.Context(), lang); err != nil {
			h.logger.Warn().Err(err).Msg("save language")
		}
		d.setChat(false, lang)
	}
	c.Redirect(http.StatusSeeOther, "/dashboard")
}

func (h *handler) sendChat(c *gin.Context) {
	_, d, ok := h.dashboardFor(c)
	if !ok {
		return
	}
	lang := c.PostForm("language")
	if !chat.Supported(lang) {
		_, lang = d.chatState()
	}
	d.setChat(true, lang)
	d.Chat.Send(c.Request.Context(), c.PostForm("message"), lang)

	back := "/dashboard"
	if p := refererPath(c.Request.Referer(), c.Request.Host); p != "" {
		back = p
	}
	c.Redirect(http.StatusSeeOther, back)
}

// refererPath keeps only the local path of a referer so the redirect never
// leaves host. Referers naming another host yield "".
func refererPath(ref, host string) string {
	u, err := url.Parse(ref)
	if err != nil || !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(u.Path, "//") {
		return ""
	}
	if u.Host != "" && !strings.EqualFold(u.Host, host) {
		return ""
	}
	return u.Path
}
