package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/melih/lighthouse-lxc/internal/core/domain"
	"github.com/melih/lighthouse-lxc/internal/core/ports"
	"github.com/sirupsen/logrus"
)

// DefaultWaitTimeout bounds a wait request that does not set its own.
const DefaultWaitTimeout = 30 * time.Second

type ContainerHandler struct {
	service   ports.ContainerService
	templates ports.TemplateFetcher
	log       logrus.FieldLogger
}

// NewContainerHandler wires the handler to the container service. templates
// may be nil, in which case create requests naming a repository are refused.
func NewContainerHandler(service ports.ContainerService, templates ports.TemplateFetcher, log logrus.FieldLogger) *ContainerHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ContainerHandler{service: service, templates: templates, log: log}
}

// Register mounts the container routes on router.
func (h *ContainerHandler) Register(router fiber.Router) {
	containers := router.Group("/containers")
	containers.Get("/", h.ListContainers)
	containers.Post("/", h.CreateContainer)
	containers.Get("/:name", h.GetContainerInfo)
	containers.Get("/:name/exists", h.ContainerExists)
	containers.Delete("/:name", h.DestroyContainer)
	containers.Post("/:name/start", h.StartContainer)
	containers.Post("/:name/stop", h.StopContainer)
	containers.Post("/:name/freeze", h.FreezeContainer)
	containers.Post("/:name/unfreeze", h.UnfreezeContainer)
	containers.Post("/:name/wait", h.WaitContainer)
	containers.Post("/:name/password", h.ResetPassword)

	router.Get("/checkconfig", h.CheckConfig)
}

// ListContainers returns container names, or full records when the
// details query parameter is true.
func (h *ContainerHandler) ListContainers(c *fiber.Ctx) error {
	names, err := h.service.List(c.Context(), domain.Filter(c.Query("status")))
	if err != nil {
		return errorResponse(c, err)
	}
	if !c.QueryBool("details") {
		if names == nil {
			names = []string{}
		}
		return c.JSON(names)
	}

	result := make([]domain.Container, 0, len(names))
	for _, name := range names {
		info, err := h.service.Info(c.Context(), name)
		if domain.HasCode(err, domain.ContainerNotExists) {
			// Removed since it was listed.
			continue
		}
		if err != nil {
			return errorResponse(c, err)
		}
		result = append(result, domain.Container{
			Name:      name,
			State:     info.State(),
			IPAddress: info.IPAddress(),
			PID:       info["pid"],
		})
	}
	return c.JSON(result)
}

func (h *ContainerHandler) ContainerExists(c *fiber.Ctx) error {
	ok, err := h.service.Exists(c.Context(), c.Params("name"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"exists": ok})
}

func (h *ContainerHandler) GetContainerInfo(c *fiber.Ctx) error {
	info, err := h.service.Info(c.Context(), c.Params("name"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(info)
}

type CreateContainerRequest struct {
	Name string `json:"name"`
	domain.CreateOptions
	// TemplateRepo is a git URL holding the template script at TemplatePath.
	TemplateRepo string `json:"template_repo"`
	TemplatePath string `json:"template_path"`
}

func (h *ContainerHandler) CreateContainer(c *fiber.Ctx) error {
	var req CreateContainerRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Name == "" {
		return badRequest(c, "Container name is required")
	}

	opts := req.CreateOptions
	if req.TemplateRepo != "" {
		if h.templates == nil {
			return badRequest(c, "Template repositories are not supported")
		}
		if req.Template != "" {
			return badRequest(c, "template and template_repo are mutually exclusive")
		}
		// Blocking: the clone happens inside the request.
		path, cleanup, err := h.templates.FetchTemplate(c.Context(), req.TemplateRepo, req.TemplatePath)
		if err != nil {
			h.log.WithError(err).WithField("repo", req.TemplateRepo).Warn("Template fetch failed")
			return errorResponse(c, err)
		}
		defer cleanup()
		opts.Template = path
	}

	if err := h.service.Create(c.Context(), req.Name, opts); err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"name": req.Name,
	})
}

func (h *ContainerHandler) StartContainer(c *fiber.Ctx) error {
	var opts domain.StartOptions
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&opts); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}
	if err := h.service.Start(c.Context(), c.Params("name"), opts); err != nil {
		return errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *ContainerHandler) StopContainer(c *fiber.Ctx) error {
	return h.simple(c, h.service.Stop)
}

func (h *ContainerHandler) DestroyContainer(c *fiber.Ctx) error {
	return h.simple(c, h.service.Destroy)
}

func (h *ContainerHandler) FreezeContainer(c *fiber.Ctx) error {
	return h.simple(c, h.service.Freeze)
}

func (h *ContainerHandler) UnfreezeContainer(c *fiber.Ctx) error {
	return h.simple(c, h.service.Unfreeze)
}

func (h *ContainerHandler) simple(c *fiber.Ctx, op func(ctx context.Context, name string) error) error {
	if err := op(c.Context(), c.Params("name")); err != nil {
		return errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

type WaitRequest struct {
	States         string `json:"states"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// WaitContainer blocks until the container reaches the requested states or
// the timeout expires.
func (h *ContainerHandler) WaitContainer(c *fiber.Ctx) error {
	var req WaitRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.States == "" {
		return badRequest(c, "states is required")
	}
	timeout := DefaultWaitTimeout
	if req.TimeoutSeconds > 0 {
		timeout = time.Duration(req.TimeoutSeconds) * time.Second
	}

	name := c.Params("name")
	n, err := h.service.Notify(c.UserContext(), name, req.States, nil)
	if err != nil {
		return errorResponse(c, err)
	}
	defer n.Cancel()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-n.Done():
		if err := n.Err(); err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(fiber.Map{"name": name, "states": req.States})
	case <-timer.C:
		return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
			"error": "Timed out waiting for " + req.States,
		})
	}
}

type ResetPasswordRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *ContainerHandler) ResetPassword(c *fiber.Ctx) error {
	var req ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := h.service.ResetPassword(c.Context(), c.Params("name"), req.Username, req.Password); err != nil {
		return errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ContainerHandler) CheckConfig(c *fiber.Ctx) error {
	lines, err := h.service.CheckConfig(c.Context())
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(lines)
}
