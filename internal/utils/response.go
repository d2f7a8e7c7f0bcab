package utils

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// APIResponse is the JSON envelope returned by every evaluation endpoint.
// Details is only set on failures; for domain errors it carries the error code
// and the offending identifiers.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

// SendSuccess writes a 200 envelope.
func SendSuccess(c *fiber.Ctx, message string, data interface{}) error {
	return send(c, fiber.StatusOK, message, data, nil)
}

// Created writes a 201 envelope for newly stored sessions and submissions.
func Created(c *fiber.Ctx, message string, data interface{}) error {
	return send(c, fiber.StatusCreated, message, data, nil)
}

// OK writes a 200 envelope with metadata such as pagination or cache hits.
func OK(c *fiber.Ctx, data interface{}, message string, meta interface{}) error {
	return send(c, fiber.StatusOK, message, data, meta)
}

// Fail writes an error envelope. A zero status means 500.
func Fail(c *fiber.Ctx, status int, message string, details interface{}) error {
	if message == "" {
		message = "error"
	}
	if status == 0 {
		status = fiber.StatusInternalServerError
	}

	return c.Status(status).JSON(APIResponse{
		Success: false,
		Message: message,
		Details: details,
	})
}

// Attachment sends a binary download such as the analytics workbook.
func Attachment(c *fiber.Ctx, fileName, contentType string, content []byte) error {
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", fileName))
	return c.Status(fiber.StatusOK).Send(content)
}

func send(c *fiber.Ctx, status int, message string, data, meta interface{}) error {
	if message == "" {
		message = "success"
	}
	return c.Status(status).JSON(APIResponse{
		Success: true,
		Data:    data,
		Message: message,
		Meta:    meta,
	})
}
