package scanning

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// mockEngine is a mock implementation of Engine
type mockEngine struct {
	text         string
	recognizeErr error
	calls        int
	closed       bool
}

func (m *mockEngine) Recognize(ctx context.Context, image []byte, contentType string) (string, error) {
	m.calls++
	if m.recognizeErr != nil {
		return "", m.recognizeErr
	}
	return m.text, nil
}

func (m *mockEngine) Close() error {
	m.closed = true
	return nil
}

// countingEngine counts recognitions safely for concurrent specs
type countingEngine struct {
	calls atomic.Int64
}

func (c *countingEngine) Recognize(ctx context.Context, image []byte, contentType string) (string, error) {
	c.calls.Add(1)
	return "Milk 60", nil
}

func (c *countingEngine) Close() error {
	return nil
}

var _ = Describe("LazyEngine", func() {
	var (
		engine       *mockEngine
		factoryErr   error
		factoryCalls int
		lazy         *LazyEngine
	)

	BeforeEach(func() {
		engine = &mockEngine{text: "Milk 60"}
		factoryErr = nil
		factoryCalls = 0
		lazy = NewLazyEngine(func() (Engine, error) {
			factoryCalls++
			if factoryErr != nil {
				return nil, factoryErr
			}
			return engine, nil
		})
	})

	Describe("Recognize", func() {
		var (
			text string
			err  error
		)

		JustBeforeEach(func() {
			text, err = lazy.Recognize(context.Background(), []byte("frame"), "image/png")
		})

		When("initialization succeeds", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should delegate to the underlying engine", func() {
				Expect(text).To(Equal("Milk 60"))
				Expect(engine.calls).To(Equal(1))
			})

			It("should reuse the engine on subsequent calls", func() {
				_, secondErr := lazy.Recognize(context.Background(), []byte("frame"), "image/png")
				Expect(secondErr).NotTo(HaveOccurred())
				Expect(factoryCalls).To(Equal(1))
			})
		})

		When("initialization fails", func() {
			BeforeEach(func() {
				factoryErr = errors.New("no api key")
			})

			It("returns an engine init error", func() {
				Expect(err).To(MatchError(ErrEngineInit))
			})

			It("should preserve the factory's cause in the chain", func() {
				Expect(errors.Is(err, factoryErr)).To(BeTrue())
			})

			It("retries initialization on the next call", func() {
				factoryErr = nil
				retryText, retryErr := lazy.Recognize(context.Background(), []byte("frame"), "image/png")
				Expect(retryErr).NotTo(HaveOccurred())
				Expect(retryText).To(Equal("Milk 60"))
				Expect(factoryCalls).To(Equal(2))
			})
		})
	})

	Describe("concurrent first scans", func() {
		It("should initialize the engine exactly once", func() {
			counting := &countingEngine{}
			var initCalls atomic.Int64
			shared := NewLazyEngine(func() (Engine, error) {
				initCalls.Add(1)
				return counting, nil
			})

			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer GinkgoRecover()
					text, err := shared.Recognize(context.Background(), []byte("frame"), "image/png")
					Expect(err).NotTo(HaveOccurred())
					Expect(text).To(Equal("Milk 60"))
				}()
			}
			wg.Wait()

			Expect(initCalls.Load()).To(Equal(int64(1)))
			Expect(counting.calls.Load()).To(Equal(int64(8)))
		})
	})

	Describe("Close", func() {
		When("the engine was never initialized", func() {
			It("should be a no-op", func() {
				Expect(lazy.Close()).To(Succeed())
				Expect(engine.closed).To(BeFalse())
			})
		})

		When("the engine was initialized", func() {
			BeforeEach(func() {
				_, err := lazy.Recognize(context.Background(), []byte("frame"), "image/png")
				Expect(err).NotTo(HaveOccurred())
			})

			It("should close the underlying engine", func() {
				Expect(lazy.Close()).To(Succeed())
				Expect(engine.closed).To(BeTrue())
			})

			It("should initialize a fresh engine afterwards", func() {
				Expect(lazy.Close()).To(Succeed())
				_, err := lazy.Recognize(context.Background(), []byte("frame"), "image/png")
				Expect(err).NotTo(HaveOccurred())
				Expect(factoryCalls).To(Equal(2))
			})
		})
	})
})
