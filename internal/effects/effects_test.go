package effects_test

import (
	"bytes"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/smykla-labs/klinik/internal/effects"
	"github.com/smykla-labs/klinik/internal/surface"
	pkgconfig "github.com/smykla-labs/klinik/pkg/config"
	"github.com/smykla-labs/klinik/pkg/logger"
)

type scheduleCall struct {
	freq    pkgconfig.BackupFrequency
	enabled bool
}

type fakeScheduler struct {
	mu    sync.Mutex
	calls []scheduleCall
}

func (f *fakeScheduler) Schedule(freq pkgconfig.BackupFrequency, enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, scheduleCall{freq, enabled})
}

func (f *fakeScheduler) Calls() []scheduleCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]scheduleCall(nil), f.calls...)
}

type panickingSurface struct {
	*surface.Document
}

func (panickingSurface) EnableMaintenance() {
	panic("surface detached")
}

type noopHook struct{}

func (noopHook) Levels() []logrus.Level  { return logrus.AllLevels }
func (noopHook) Fire(*logrus.Entry) error { return nil }

var _ = Describe("Applier", func() {
	var (
		doc       *surface.Document
		base      *logrus.Logger
		log       *logger.LogrusLogger
		scheduler *fakeScheduler
		applier   *effects.Applier
	)

	BeforeEach(func() {
		doc = surface.NewDocument()
		doc.BindTitle("header")

		base = logrus.New()
		base.SetOutput(&bytes.Buffer{})
		base.SetLevel(logrus.DebugLevel)
		base.AddHook(noopHook{})

		log = logger.NewLogrusLogger(base)
		scheduler = &fakeScheduler{}
		applier = effects.NewApplier(doc, log, scheduler, log)
	})

	AfterEach(func() {
		applier.ApplyDebugMode(false)
	})

	Describe("ApplySystemName", func() {
		It("should update the title and bound elements", func() {
			applier.ApplySystemName("Clínica Bem Estar")

			Expect(doc.Title()).To(Equal("Clínica Bem Estar"))

			text, ok := doc.BoundText("header")
			Expect(ok).To(BeTrue())
			Expect(text).To(Equal("Clínica Bem Estar"))
		})
	})

	Describe("ApplyMaintenanceMode", func() {
		It("should keep exactly one banner and overlay however often it is enabled", func() {
			for range 3 {
				applier.ApplyMaintenanceMode(true)
			}

			Expect(doc.Count(surface.KindBanner)).To(Equal(1))
			Expect(doc.Count(surface.KindOverlay)).To(Equal(1))
		})

		It("should remove both when disabled", func() {
			applier.ApplyMaintenanceMode(true)
			applier.ApplyMaintenanceMode(false)

			Expect(doc.Has(surface.KindBanner)).To(BeFalse())
			Expect(doc.Has(surface.KindOverlay)).To(BeFalse())
		})

		It("should be a no-op when disabling twice", func() {
			applier.ApplyMaintenanceMode(false)
			applier.ApplyMaintenanceMode(false)

			Expect(doc.Elements()).To(HaveLen(1))
		})
	})

	Describe("ApplyDebugMode", func() {
		It("should mirror log output into the panel while enabled", func() {
			applier.ApplyDebugMode(true)
			applier.ApplyDebugMode(true)

			log.Info("patient list loaded", "count", 3)

			Expect(doc.Count(surface.KindDebugPanel)).To(Equal(1))
			Expect(applier.Mirroring()).To(BeTrue())
			Expect(doc.DebugLines()).To(ContainElement(ContainSubstring("patient list loaded")))
		})

		It("should restore the exact previous hooks when disabled", func() {
			before := base.Hooks[logrus.InfoLevel]

			applier.ApplyDebugMode(true)
			Expect(base.Hooks[logrus.InfoLevel]).To(HaveLen(len(before) + 1))

			applier.ApplyDebugMode(false)

			Expect(base.Hooks[logrus.InfoLevel]).To(Equal(before))
			Expect(doc.Has(surface.KindDebugPanel)).To(BeFalse())
			Expect(applier.Mirroring()).To(BeFalse())

			log.Info("after disable")
			Expect(doc.DebugLines()).To(BeEmpty())
		})

		It("should survive repeated toggles", func() {
			before := base.Hooks[logrus.InfoLevel]

			for range 5 {
				applier.ApplyDebugMode(true)
				applier.ApplyDebugMode(false)
			}

			Expect(base.Hooks[logrus.InfoLevel]).To(Equal(before))
		})
	})

	Describe("ScheduleRecurringExport", func() {
		It("should delegate to the scheduler", func() {
			applier.ScheduleRecurringExport(pkgconfig.BackupWeekly, true)
			applier.ScheduleRecurringExport(pkgconfig.BackupDaily, false)

			Expect(scheduler.Calls()).To(Equal([]scheduleCall{
				{pkgconfig.BackupWeekly, true},
				{pkgconfig.BackupDaily, false},
			}))
		})
	})

	Describe("ApplyAll", func() {
		It("should apply every effect of the snapshot", func() {
			cfg := pkgconfig.DefaultConfig()
			cfg.SystemName = "Clínica Vida"
			cfg.MaintenanceMode = true
			cfg.DebugMode = true
			cfg.BackupFrequency = pkgconfig.BackupMonthly

			applier.ApplyAll(cfg)

			Expect(doc.Title()).To(Equal("Clínica Vida"))
			Expect(doc.Has(surface.KindBanner)).To(BeTrue())
			Expect(doc.Has(surface.KindDebugPanel)).To(BeTrue())
			Expect(scheduler.Calls()).To(ConsistOf(scheduleCall{pkgconfig.BackupMonthly, true}))
		})
	})

	Context("without capabilities", func() {
		It("should not panic", func() {
			bare := effects.NewApplier(nil, nil, nil, nil)

			Expect(func() {
				bare.ApplyAll(pkgconfig.DefaultConfig())
				bare.ApplyDebugMode(true)
				bare.ApplyDebugMode(false)
			}).NotTo(Panic())
		})
	})

	Context("with a failing surface", func() {
		It("should recover and keep applying the other effects", func() {
			failing := effects.NewApplier(panickingSurface{doc}, nil, scheduler, nil)

			Expect(func() {
				failing.ApplyAll(pkgconfig.DefaultConfig())
				failing.ApplyMaintenanceMode(true)
			}).NotTo(Panic())

			Expect(scheduler.Calls()).To(HaveLen(1))
		})
	})
})
