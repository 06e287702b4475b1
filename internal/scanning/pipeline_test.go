package scanning

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"pricewise/internal/camera"
)

var _ = Describe("Pipeline", func() {
	var (
		engine   *mockEngine
		pipeline *Pipeline
		session  *camera.Session
		progress []int
		result   *ScanResult
		err      error
	)

	BeforeEach(func() {
		engine = &mockEngine{text: "Tomato 1kg 40\nOnion 30"}
		pipeline = NewPipeline(engine)

		device, deviceErr := camera.NewStaticDevice([]byte("frame-bytes"), "image/png")
		Expect(deviceErr).NotTo(HaveOccurred())
		session = camera.NewSession(device)
		Expect(session.Start(context.Background(), camera.DefaultConstraints())).To(Succeed())

		progress = nil
	})

	JustBeforeEach(func() {
		result, err = pipeline.Scan(context.Background(), session, func(percent int) {
			progress = append(progress, percent)
		})
	})

	When("the scan succeeds", func() {
		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should return the extracted records", func() {
			Expect(result.Records).To(Equal([]LineItem{
				{Name: "Tomato", Price: 40, Quantity: 1},
				{Name: "Onion", Price: 30, Quantity: 1},
			}))
		})

		It("should not flag the fallback", func() {
			Expect(result.Fallback).To(BeFalse())
		})

		It("should stop the session", func() {
			Expect(session.State()).To(Equal(camera.Stopped))
		})

		It("should report monotonically increasing progress ending at 100", func() {
			Expect(progress).NotTo(BeEmpty())
			for i := 1; i < len(progress); i++ {
				Expect(progress[i]).To(BeNumerically(">", progress[i-1]))
			}
			Expect(progress[len(progress)-1]).To(Equal(100))
		})
	})

	When("the recognized text yields no records", func() {
		BeforeEach(func() {
			engine.text = "Thank you for shopping"
		})

		It("should substitute the sample items", func() {
			Expect(result.Records).To(Equal(SampleItems()))
		})

		It("should flag the fallback", func() {
			Expect(result.Fallback).To(BeTrue())
		})
	})

	When("the recognized text is empty", func() {
		BeforeEach(func() {
			engine.text = ""
		})

		It("should substitute the sample items", func() {
			Expect(result.Records).To(Equal(SampleItems()))
			Expect(result.Fallback).To(BeTrue())
		})
	})

	When("recognition fails", func() {
		BeforeEach(func() {
			engine.recognizeErr = errors.New("model unavailable")
		})

		It("returns the error", func() {
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("recognizing bill text"))
		})

		It("should still stop the session", func() {
			Expect(session.State()).To(Equal(camera.Stopped))
		})
	})

	When("the session was never started", func() {
		BeforeEach(func() {
			device, deviceErr := camera.NewStaticDevice([]byte("frame-bytes"), "image/png")
			Expect(deviceErr).NotTo(HaveOccurred())
			session = camera.NewSession(device)
		})

		It("returns a not-ready error without invoking the engine", func() {
			Expect(err).To(MatchError(camera.ErrNotReady))
			Expect(engine.calls).To(BeZero())
		})
	})

	When("the session was already stopped", func() {
		BeforeEach(func() {
			session.Stop()
		})

		It("returns a not-ready error", func() {
			Expect(err).To(MatchError(camera.ErrNotReady))
		})
	})

	When("engine initialization fails", func() {
		BeforeEach(func() {
			lazy := NewLazyEngine(func() (Engine, error) {
				return nil, errors.New("no api key")
			})
			pipeline = NewPipeline(lazy)
		})

		It("returns an engine init error", func() {
			Expect(err).To(MatchError(ErrEngineInit))
		})

		It("should still stop the session", func() {
			Expect(session.State()).To(Equal(camera.Stopped))
		})
	})
})
