package jobs

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"

	"jobconnect/models"
	"jobconnect/store"
	"jobconnect/utils"
)

// applicantViews joins a job's applications with the applicant records.
func (h *Handler) applicantViews(ctx context.Context, jobID string) ([]models.ApplicantView, error) {
	apps, err := h.Store.ListApplicationsByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(apps))
	for _, a := range apps {
		ids = append(ids, a.ApplicantID)
	}
	users, err := h.Store.GetUsers(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]models.ApplicantView, 0, len(apps))
	for _, a := range apps {
		v := models.ApplicantView{
			ID:                a.ApplicantID,
			ApplicationID:     a.ID,
			ApplicationStatus: a.Status,
			AppliedDate:       a.AppliedDate,
		}
		if u, ok := users[a.ApplicantID]; ok {
			v.FirstName = u.FirstName
			v.LastName = u.LastName
			v.Phone = u.Phone
			v.Role = u.Role
			v.Title = u.Title
			v.Status = u.Status
		}
		out = append(out, v)
	}
	return out, nil
}

// ownedJob loads the job and requires the caller to own it.
func (h *Handler) ownedJob(ctx context.Context, w http.ResponseWriter, r *http.Request, id string) (*models.JobListing, bool) {
	job, ok := h.loadJob(ctx, w, id)
	if !ok {
		return nil, false
	}
	if job.UserID != utils.GetUserIDFromRequest(r) {
		utils.RespondWithError(w, http.StatusForbidden, "Only the job owner can view applicants")
		return nil, false
	}
	return job, true
}

// GetApplicants handles GET /api/jobs/:id/applicants.
func (h *Handler) GetApplicants(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), store.Timeout)
	defer cancel()

	job, ok := h.ownedJob(ctx, w, r, ps.ByName("id"))
	if !ok {
		return
	}
	views, err := h.applicantViews(ctx, job.ID)
	if err != nil {
		utils.RespondServerError(w, "Failed to load applicants", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"success": true,
		"count":   len(views),
		"data":    views,
	})
}

func (h *Handler) jobURL(jobID string) string {
	return strings.TrimRight(h.PublicBaseURL, "/") + "/jobs/" + jobID
}

// JobQR handles GET /api/jobs/:id/qr.
func (h *Handler) JobQR(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), store.Timeout)
	defer cancel()

	job, ok := h.loadJob(ctx, w, ps.ByName("id"))
	if !ok {
		return
	}
	png, err := qrcode.Encode(h.jobURL(job.ID), qrcode.Medium, 256)
	if err != nil {
		utils.RespondServerError(w, "Failed to generate QR code", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// ExportApplicants handles GET /api/jobs/:id/applicants/export.
func (h *Handler) ExportApplicants(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), store.Timeout)
	defer cancel()

	job, ok := h.ownedJob(ctx, w, r, ps.ByName("id"))
	if !ok {
		return
	}
	views, err := h.applicantViews(ctx, job.ID)
	if err != nil {
		utils.RespondServerError(w, "Failed to load applicants", err)
		return
	}

	pdfBytes, err := h.rosterPDF(job, views)
	if err != nil {
		utils.RespondServerError(w, "Failed to generate PDF", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=applicants-"+job.ID+".pdf")
	w.WriteHeader(http.StatusOK)
	w.Write(pdfBytes)
}

func rosterRow(tr func(string) string, v models.ApplicantView) []string {
	return []string{
		tr(strings.TrimSpace(v.FirstName + " " + v.LastName)),
		tr(v.Phone),
		string(v.ApplicationStatus),
		v.AppliedDate.Format("2006-01-02"),
	}
}

func (h *Handler) rosterPDF(job *models.JobListing, views []models.ApplicantView) ([]byte, error) {
	qrPNG, err := qrcode.Encode(h.jobURL(job.ID), qrcode.Medium, 256)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	// core fonts are cp1252; runes outside it print as '.'
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, tr(job.Title))
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 11)
	pdf.Cell(0, 8, tr(fmt.Sprintf("%s - %s", job.Position, job.Location)))
	pdf.Ln(6)
	pdf.Cell(0, 8, fmt.Sprintf("Applicants: %d", len(views)))
	pdf.Ln(12)

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 160, 10, 35, 35, false, imageOpts, 0, "")

	pdf.SetY(50)
	pdf.SetFont("Arial", "B", 10)
	widths := []float64{60, 40, 35, 45}
	for i, head := range []string{"Name", "Phone", "Status", "Applied"} {
		pdf.CellFormat(widths[i], 8, head, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	for _, v := range views {
		for i, cell := range rosterRow(tr, v) {
			pdf.CellFormat(widths[i], 7, cell, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
