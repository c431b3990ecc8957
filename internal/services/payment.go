package services

import (
	"math/rand/v2"
	"time"

	"github.com/minimart/apiserver/config"
	"github.com/sirupsen/logrus"
)

const paymentProcessingDelay = 100 * time.Millisecond

// PaymentGate simulates a payment provider: a single draw against the
// configured success probability decides the outcome. There are no
// retries.
type PaymentGate struct {
	successRate float64
	delay       time.Duration
	draw        func() float64
	log         *logrus.Logger
}

func NewPaymentGate(cfg config.PaymentConfig, log *logrus.Logger) *PaymentGate {
	return &PaymentGate{
		successRate: cfg.SuccessRate,
		delay:       paymentProcessingDelay,
		draw:        rand.Float64,
		log:         log,
	}
}

// Charge reports whether the simulated payment succeeded.
func (g *PaymentGate) Charge(amount float64) bool {
	time.Sleep(g.delay)

	if g.draw() < g.successRate {
		g.log.WithField("amount", amount).Info("payment successful")
		return true
	}
	g.log.WithField("amount", amount).Warn("payment failed")
	return false
}
