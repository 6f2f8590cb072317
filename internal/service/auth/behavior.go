package auth

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/go-rod/rod/lib/proto"

	"github.com/oshokin/scdl-grabber/internal/logger"
	"github.com/oshokin/scdl-grabber/internal/utils"
)

// viewport is the visible page area in CSS pixels.
type viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// randomPoint returns a point inside the viewport.
//
//nolint:gosec // Pointer jitter needs no cryptographic randomness.
func (v viewport) randomPoint() proto.Point {
	return proto.Point{X: float64(rand.IntN(v.Width)), Y: float64(rand.IntN(v.Height))}
}

// simulateHumanBehavior jiggles the pointer and sometimes scrolls while the sign-in is pending.
//
//nolint:gosec // Pointer jitter needs no cryptographic randomness.
func (s *ServiceImpl) simulateHumanBehavior(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logger.Debugf(ctx, "Pointer simulation panic recovered: %v", r)
		}
	}()

	result, err := s.page.Eval(`() => ({width: window.innerWidth, height: window.innerHeight})`)
	if err != nil {
		return
	}

	var area viewport
	if err = result.Value.Unmarshal(&area); err != nil || area.Width <= 0 || area.Height <= 0 {
		return
	}

	for range mouseMovementsPerCheck {
		if err = s.page.Mouse.MoveTo(area.randomPoint()); err != nil {
			logger.Debugf(ctx, "Pointer move failed: %v", err)

			return
		}

		time.Sleep(mouseMovementMinDelay + rand.N(mouseMovementMaxDelay-mouseMovementMinDelay))
	}

	if rand.IntN(scrollProbability) != 0 {
		return
	}

	offset := float64(scrollMinAmount + rand.IntN(scrollMaxAmount-scrollMinAmount))
	if err = s.page.Mouse.Scroll(0, offset, 1); err != nil {
		logger.Debugf(ctx, "Scroll failed: %v", err)
	}
}

func randomHumanDelay() {
	utils.RandomPause(humanBehaviorMinDelay, humanBehaviorMaxDelay)
}
