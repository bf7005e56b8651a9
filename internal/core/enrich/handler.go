package enrich

import (
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"enricher/internal/core/job"
)

type Handler struct {
	jobs   *job.Service
	enrich *Service
}

func NewHandler(jobs *job.Service, enrich *Service) *Handler {
	return &Handler{jobs: jobs, enrich: enrich}
}

type CreateJobRequest struct {
	URLs []string `json:"urls"`
}

type CreateJobResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"job_id"`
	Total   int    `json:"total_urls"`
}

type JobResponse struct {
	Success bool       `json:"success"`
	Job     *job.Job   `json:"job"`
	Items   []job.Item `json:"items"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (h *Handler) HandleCreateJob(c *fiber.Ctx) error {
	var req CreateJobRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid body"})
	}
	urls := normalizeURLs(req.URLs)
	if len(urls) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "at least one valid http(s) url is required"})
	}
	id, err := h.enrich.CreateJob(c.Context(), urls)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: err.Error()})
	}
	return c.JSON(CreateJobResponse{Success: true, JobID: id, Total: len(urls)})
}

func (h *Handler) HandleGetJob(c *fiber.Ctx) error {
	id := c.Params("jobId")
	j, err := h.jobs.Job(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: "not_found"})
	}
	items, err := h.jobs.Items(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: err.Error()})
	}
	return c.JSON(JobResponse{Success: true, Job: j, Items: items})
}

// normalizeURLs drops non-http(s) entries and duplicates, preserving order.
func normalizeURLs(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, raw := range in {
		raw = strings.TrimSpace(raw)
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			continue
		}
		if _, ok := seen[raw]; ok {
			continue
		}
		seen[raw] = struct{}{}
		out = append(out, raw)
	}
	return out
}
