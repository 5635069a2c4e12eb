package handlers

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/escrowdesk/backend/internal/config"
	"github.com/escrowdesk/backend/internal/middleware"
)

func TestDealHandlerIsAdmin(t *testing.T) {
	app := fiber.New()
	cfg := &config.Config{AdminTelegramIDs: []int64{99}}
	h := NewDealHandler(nil, cfg, zap.NewNop())

	tests := []struct {
		name    string
		actorID int64
		want    bool
	}{
		{"configured admin", 99, true},
		{"regular actor", 100, false},
		{"no actor in context", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := app.AcquireCtx(&fasthttp.RequestCtx{})
			defer app.ReleaseCtx(c)
			if tt.actorID != 0 {
				c.Locals(middleware.CtxActorID, tt.actorID)
			}
			if got := h.isAdmin(c); got != tt.want {
				t.Errorf("isAdmin = %v, want %v", got, tt.want)
			}
		})
	}
}
