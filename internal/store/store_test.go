package store_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smykla-labs/klinik/internal/config"
	"github.com/smykla-labs/klinik/internal/persistence"
	"github.com/smykla-labs/klinik/internal/storage"
	"github.com/smykla-labs/klinik/internal/store"
	pkgconfig "github.com/smykla-labs/klinik/pkg/config"
)

// journal records the order in which collaborators are called.
type journal struct {
	mu     sync.Mutex
	events []string
}

func (j *journal) add(event string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.events = append(j.events, event)
}

func (j *journal) all() []string {
	j.mu.Lock()
	defer j.mu.Unlock()

	return append([]string(nil), j.events...)
}

type recordingPersistence struct {
	*persistence.Persistence
	journal *journal
}

func (p recordingPersistence) Save(ctx context.Context, cfg pkgconfig.Config) {
	p.journal.add("save")
	p.Persistence.Save(ctx, cfg)
}

func (p recordingPersistence) Clear(ctx context.Context) {
	p.journal.add("clear")
	p.Persistence.Clear(ctx)
}

type recordingEffects struct {
	journal *journal

	mu      sync.Mutex
	applied []pkgconfig.Config
}

func (e *recordingEffects) ApplyAll(cfg pkgconfig.Config) {
	e.journal.add("effects")

	e.mu.Lock()
	defer e.mu.Unlock()

	e.applied = append(e.applied, cfg)
}

func (e *recordingEffects) Applied() []pkgconfig.Config {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]pkgconfig.Config(nil), e.applied...)
}

var _ = Describe("Store", func() {
	var (
		ctx     context.Context
		slot    *storage.MemorySlot
		events  *journal
		effects *recordingEffects
		s       *store.Store
	)

	newStore := func(opts ...store.Option) *store.Store {
		p := recordingPersistence{Persistence: persistence.New(slot, nil), journal: events}

		return store.New(p, effects, nil, opts...)
	}

	BeforeEach(func() {
		ctx = context.Background()
		slot = storage.NewMemorySlot()
		events = &journal{}
		effects = &recordingEffects{journal: events}
		s = newStore(store.WithEffectDelay(0))
	})

	AfterEach(func() {
		s.Close()
	})

	Describe("first access", func() {
		It("should start from the defaults when nothing is persisted", func() {
			Expect(s.Get()).To(Equal(pkgconfig.DefaultConfig()))
			Expect(effects.Applied()).To(HaveLen(1))
		})

		It("should load the persisted snapshot with missing fields backfilled", func() {
			Expect(slot.Write(ctx, []byte(`{"systemName":"Clínica Vida","maintenanceMode":true}`))).To(Succeed())

			cfg := s.Load(ctx)

			Expect(cfg.SystemName).To(Equal("Clínica Vida"))
			Expect(cfg.MaintenanceMode).To(BeTrue())
			Expect(cfg.DebugMode).To(BeFalse())
			Expect(effects.Applied()).To(ConsistOf(cfg))
		})

		It("should fall back to the defaults when the slot is corrupt", func() {
			Expect(slot.Write(ctx, []byte(`{"systemName":`))).To(Succeed())

			Expect(s.Get()).To(Equal(pkgconfig.DefaultConfig()))
		})

		It("should load only once", func() {
			s.Get()
			s.Load(ctx)
			s.Get()

			Expect(effects.Applied()).To(HaveLen(1))
		})
	})

	Describe("Update", func() {
		It("should replace a nested value and keep its siblings", func() {
			cfg, err := s.Update(ctx, "passwordPolicy.minLength", 12)
			Expect(err).NotTo(HaveOccurred())

			Expect(cfg.PasswordPolicy.MinLength).To(Equal(12))
			Expect(cfg.PasswordPolicy.RequireUppercase).To(BeTrue())
			Expect(s.Get()).To(Equal(cfg))
		})

		It("should persist before applying effects", func() {
			s.Get()

			_, err := s.Update(ctx, "maintenanceMode", true)
			Expect(err).NotTo(HaveOccurred())

			Expect(events.all()).To(Equal([]string{"effects", "save", "effects"}))
		})

		It("should round-trip through the slot", func() {
			_, err := s.Update(ctx, "systemName", "Clínica Sorriso")
			Expect(err).NotTo(HaveOccurred())

			reopened := newStore(store.WithEffectDelay(0))
			defer reopened.Close()

			Expect(reopened.Get()).To(Equal(s.Get()))
		})

		It("should reject unknown paths and keep the snapshot", func() {
			before := s.Get()

			_, err := s.Update(ctx, "theme", "dark")
			Expect(err).To(MatchError(config.ErrInvalidPath))
			Expect(s.Get()).To(Equal(before))
			Expect(events.all()).NotTo(ContainElement("save"))
		})

		It("should reject invalid values and keep the snapshot", func() {
			_, err := s.Update(ctx, "backupFrequency", "hourly")
			Expect(err).To(MatchError(config.ErrInvalidValue))

			_, err = s.Update(ctx, "smtpPort", 70000)
			Expect(err).To(MatchError(config.ErrInvalidValue))

			Expect(s.Get()).To(Equal(pkgconfig.DefaultConfig()))
		})
	})

	Describe("UpdateMany", func() {
		It("should merge nested groups with their current members", func() {
			cfg, err := s.UpdateMany(ctx, map[string]any{
				"systemName":     "Clínica Vida",
				"passwordPolicy": map[string]any{"requireSpecialChars": true},
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(cfg.SystemName).To(Equal("Clínica Vida"))
			Expect(cfg.PasswordPolicy).To(Equal(pkgconfig.PasswordPolicy{
				MinLength:           8,
				RequireUppercase:    true,
				RequireNumbers:      true,
				RequireSpecialChars: true,
			}))
		})

		It("should reject the whole patch when one key is unknown", func() {
			_, err := s.UpdateMany(ctx, map[string]any{
				"systemName": "Clínica Vida",
				"colour":     "blue",
			})
			Expect(err).To(MatchError(config.ErrInvalidPath))
			Expect(s.Get().SystemName).To(Equal("Clinic Management System"))
		})
	})

	Describe("SaveCategory", func() {
		It("should map security fields into the password policy", func() {
			cfg, err := s.SaveCategory(ctx, pkgconfig.CategorySecurity, map[string]any{
				"maxLoginAttempts":    3,
				"minLength":           10,
				"requireUppercase":    false,
				"requireNumbers":      true,
				"requireSpecialChars": true,
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(cfg.MaxLoginAttempts).To(Equal(3))
			Expect(cfg.PasswordPolicy).To(Equal(pkgconfig.PasswordPolicy{
				MinLength:           10,
				RequireUppercase:    false,
				RequireNumbers:      true,
				RequireSpecialChars: true,
			}))
		})

		It("should map email fields onto the smtp fields", func() {
			cfg, err := s.SaveCategory(ctx, pkgconfig.CategoryEmail, map[string]any{
				"enabled": true,
				"host":    "smtp.clinica.com.br",
				"port":    "465",
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(cfg.SMTPEnabled).To(BeTrue())
			Expect(cfg.SMTPHost).To(Equal("smtp.clinica.com.br"))
			Expect(cfg.SMTPPort).To(Equal(465))
			Expect(cfg.SMTPTLS).To(BeTrue())
		})

		It("should reject unknown categories", func() {
			_, err := s.SaveCategory(ctx, "billing", map[string]any{"currency": "BRL"})
			Expect(err).To(MatchError(pkgconfig.ErrUnknownCategory))
		})

		It("should reject fields of another category", func() {
			_, err := s.SaveCategory(ctx, pkgconfig.CategorySystem, map[string]any{"host": "x"})
			Expect(err).To(MatchError(config.ErrInvalidPath))
		})
	})

	Describe("Reset", func() {
		It("should restore the defaults and clear the slot", func() {
			_, err := s.Update(ctx, "debugMode", true)
			Expect(err).NotTo(HaveOccurred())

			Expect(s.Reset(ctx)).To(Equal(pkgconfig.DefaultConfig()))
			Expect(s.Get()).To(Equal(pkgconfig.DefaultConfig()))

			_, err = slot.Read(ctx)
			Expect(err).To(MatchError(storage.ErrNotFound))
			Expect(effects.Applied()[len(effects.Applied())-1].DebugMode).To(BeFalse())
		})
	})

	Describe("Reload", func() {
		It("should pick up snapshots written by another process", func() {
			s.Get()

			other := persistence.New(slot, nil)
			changed := pkgconfig.DefaultConfig()
			changed.MaintenanceMode = true
			other.Save(ctx, changed)

			Expect(s.Reload(ctx)).To(Equal(changed))
			Expect(s.Get()).To(Equal(changed))
			Expect(effects.Applied()).To(HaveLen(2))
		})

		It("should do nothing when the slot is unchanged", func() {
			s.Get()
			s.Reload(ctx)

			Expect(effects.Applied()).To(HaveLen(1))
		})
	})

	Describe("Subscribe", func() {
		It("should notify observers until they unsubscribe", func() {
			var seen []string

			unsubscribe := s.Subscribe(func(cfg pkgconfig.Config) {
				seen = append(seen, cfg.SystemName)
			})

			_, err := s.Update(ctx, "systemName", "A")
			Expect(err).NotTo(HaveOccurred())

			unsubscribe()

			_, err = s.Update(ctx, "systemName", "B")
			Expect(err).NotTo(HaveOccurred())

			Expect(seen).To(Equal([]string{"A"}))
		})
	})

	Context("with a coalescing window", func() {
		It("should apply a burst of updates once with the latest snapshot", func() {
			slow := newStore(store.WithEffectDelay(50 * time.Millisecond))
			defer slow.Close()

			slow.Get()

			for _, name := range []string{"A", "B", "C"} {
				_, err := slow.Update(ctx, "systemName", name)
				Expect(err).NotTo(HaveOccurred())
			}

			Eventually(func() int { return len(effects.Applied()) }).
				WithTimeout(time.Second).
				Should(Equal(2))
			Consistently(func() int { return len(effects.Applied()) }).
				WithTimeout(100 * time.Millisecond).
				Should(Equal(2))

			Expect(effects.Applied()[1].SystemName).To(Equal("C"))
		})

		It("should flush pending effects on close", func() {
			slow := newStore(store.WithEffectDelay(time.Hour))

			_, err := slow.Update(ctx, "maintenanceMode", true)
			Expect(err).NotTo(HaveOccurred())

			slow.Close()

			applied := effects.Applied()
			Expect(applied[len(applied)-1].MaintenanceMode).To(BeTrue())
		})
	})

	It("should never expose a partial snapshot to concurrent readers", func() {
		s.Get()

		var wg sync.WaitGroup

		for i := range 10 {
			wg.Add(1)

			go func() {
				defer wg.Done()
				defer GinkgoRecover()

				_, err := s.UpdateMany(ctx, map[string]any{
					"passwordPolicy": map[string]any{"minLength": 10 + i, "requireNumbers": i%2 == 0},
				})
				Expect(err).NotTo(HaveOccurred())
			}()
		}

		for range 100 {
			cfg := s.Get()
			Expect(cfg.SystemName).To(Equal("Clinic Management System"))
			Expect(cfg.PasswordPolicy.MinLength).To(BeNumerically(">=", 8))
		}

		wg.Wait()
	})
})
