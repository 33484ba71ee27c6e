package utils

import "github.com/gofiber/fiber/v2"

// APIResponse is the envelope every portal endpoint answers with.
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// RedirectDetails tells the browser which login page to show next.
type RedirectDetails struct {
	Redirect string `json:"redirect"`
}

// SendSuccess answers 200 with data.
func SendSuccess(c *fiber.Ctx, message string, data interface{}) error {
	return respond(c, fiber.StatusOK, APIResponse{Success: true, Message: message, Data: data})
}

// Created answers 201 for resources relayed to the learning backend.
func Created(c *fiber.Ctx, message string, data interface{}) error {
	return respond(c, fiber.StatusCreated, APIResponse{Success: true, Message: message, Data: data})
}

// OK answers 200 with data and pagination or cache metadata.
func OK(c *fiber.Ctx, data interface{}, message string, meta interface{}) error {
	return respond(c, fiber.StatusOK, APIResponse{Success: true, Message: message, Data: data, Meta: meta})
}

// SendError answers with a bare failure message.
func SendError(c *fiber.Ctx, status int, message string) error {
	return Fail(c, status, message, nil)
}

// Fail answers with a failure carrying structured details such as field errors.
func Fail(c *fiber.Ctx, status int, message string, details interface{}) error {
	return respond(c, status, APIResponse{Message: message, Details: details})
}

// Redirect answers with a failure that sends the browser to a login route.
func Redirect(c *fiber.Ctx, status int, message, route string) error {
	return Fail(c, status, message, RedirectDetails{Redirect: route})
}

func respond(c *fiber.Ctx, status int, body APIResponse) error {
	if status == 0 {
		status = fiber.StatusOK
	}
	if body.Message == "" {
		if body.Success {
			body.Message = "success"
		} else {
			body.Message = "error"
		}
	}

	// envelopes carry per-session data
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Status(status).JSON(body)
}
