package httpadapter

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/healthchain/rxintake/internal/core/domain"
	"github.com/healthchain/rxintake/internal/core/ports"
	"github.com/healthchain/rxintake/internal/observability/metrics"
)

const maxUploadBytes = 32 << 20

type Router struct {
	loginUC  ports.LoginService
	ingestUC ports.PrescriptionIngestor
	riskUC   ports.RiskProfiler
	dashUC   ports.DashboardService
	ledger   ports.Ledger
	sessions ports.SessionManager

	stream       string
	service      string
	metrics      *metrics.HTTPServerMetrics
	loginLimiter *loginLimiter
}

func NewRouter(
	loginUC ports.LoginService,
	ingestUC ports.PrescriptionIngestor,
	riskUC ports.RiskProfiler,
	dashUC ports.DashboardService,
	ledger ports.Ledger,
	sessions ports.SessionManager,
	stream string,
) *Router {
	return &Router{
		loginUC:  loginUC,
		ingestUC: ingestUC,
		riskUC:   riskUC,
		dashUC:   dashUC,
		ledger:   ledger,
		sessions: sessions,
		stream:   stream,
		service:  "api",
	}
}

// WithMetrics attaches the prometheus registry; nil-safe everywhere so
// tests can run without one.
func (rt *Router) WithMetrics(m *metrics.HTTPServerMetrics) *Router {
	rt.metrics = m
	return rt
}

// WithLoginRateLimit bounds login attempts per client IP.
func (rt *Router) WithLoginRateLimit(perMinute, burst int) *Router {
	rt.loginLimiter = newLoginLimiter(perMinute, burst)
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/login", rt.login)
	mux.HandleFunc("/logout", rt.protected(rt.logout))
	mux.HandleFunc("/upload_prescription", rt.protected(rt.uploadPrescription))
	mux.HandleFunc("/get_prescriptions/", rt.protected(rt.getPrescriptions))
	mux.HandleFunc("/dashboard", rt.protected(rt.dashboard))
	mux.HandleFunc("/dashboard/export", rt.protected(rt.dashboardExport))
	mux.HandleFunc("/generate_patient_risk_profile/", rt.protected(rt.generateRiskProfile))
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if rt.loginLimiter != nil && !rt.loginLimiter.allow(clientIP(r)) {
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "too many login attempts"})
		return
	}

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	token, clinicianID, err := rt.loginUC.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message":      "Login successful",
		"access_token": token,
		"doctor_id":    clinicianID,
	})
}

func (rt *Router) logout(w http.ResponseWriter, r *http.Request, session domain.Session) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	rt.sessions.Revoke(session)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully!"})
}

func (rt *Router) uploadPrescription(w http.ResponseWriter, r *http.Request, session domain.Session) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No file provided"})
		return
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read file"})
		return
	}

	upload := domain.PrescriptionUpload{
		FileBytes:   fileBytes,
		Filename:    fileHeader.Filename,
		FileKind:    domain.DetectFileKind(fileHeader.Filename),
		PatientID:   r.FormValue("patient_id"),
		Timestamp:   r.FormValue("timestamp"),
		ClinicianID: session.ClinicianID,
	}

	start := time.Now()
	result, err := rt.ingestUC.Ingest(r.Context(), upload)
	if err != nil {
		rt.recordIngest("error", time.Since(start))
		writeError(w, err)
		return
	}
	rt.recordIngest("ok", time.Since(start))
	rt.recordLedgerAppend()

	response := map[string]any{
		"CID":                 result.Record.CID,
		"Blockchain Response": result.LedgerResponse,
		"Extracted_Text":      result.Record.ExtractedText,
		"DDI Analysis":        result.Record.DDIAnalysis,
	}
	if len(result.ParsedDrugs) > 0 {
		response["Parsed_Drugs"] = result.ParsedDrugs
	}
	writeJSON(w, http.StatusOK, response)
}

func (rt *Router) getPrescriptions(w http.ResponseWriter, r *http.Request, _ domain.Session) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	patientID := strings.TrimPrefix(r.URL.Path, "/get_prescriptions/")
	if patientID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "patient_id is required"})
		return
	}

	envelope, err := rt.ledger.QueryKeyRaw(r.Context(), rt.stream, patientID)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(envelope)
}

func (rt *Router) dashboard(w http.ResponseWriter, r *http.Request, session domain.Session) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	uploads, err := rt.dashUC.ListUploads(r.Context(), session.ClinicianID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"uploads": uploads})
}

func (rt *Router) generateRiskProfile(w http.ResponseWriter, r *http.Request, _ domain.Session) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	patientID := strings.TrimPrefix(r.URL.Path, "/generate_patient_risk_profile/")
	if patientID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "patient_id is required"})
		return
	}

	profile, err := rt.riskUC.BuildRiskProfile(r.Context(), patientID)
	if err != nil {
		rt.recordRiskProfile("error")
		writeError(w, err)
		return
	}
	rt.recordRiskProfile("ok")
	writeJSON(w, http.StatusOK, map[string]string{"risk_profile": profile})
}

func (rt *Router) recordIngest(outcome string, duration time.Duration) {
	if rt.metrics != nil {
		rt.metrics.RecordIngest(rt.service, outcome, duration)
	}
}

func (rt *Router) recordLedgerAppend() {
	if rt.metrics != nil {
		rt.metrics.RecordLedgerAppend(rt.service, rt.stream)
	}
}

func (rt *Router) recordRiskProfile(outcome string) {
	if rt.metrics != nil {
		rt.metrics.RecordRiskProfile(rt.service, outcome)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
