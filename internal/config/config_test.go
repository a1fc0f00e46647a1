package config_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smykla-labs/klinik/internal/config"
	pkgconfig "github.com/smykla-labs/klinik/pkg/config"
)

var _ = Describe("Merge", func() {
	It("should backfill missing fields from defaults", func() {
		raw := map[string]any{
			"systemName":      "Clínica Vida",
			"maintenanceMode": true,
		}

		cfg, err := config.Merge(pkgconfig.DefaultConfig(), raw)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.SystemName).To(Equal("Clínica Vida"))
		Expect(cfg.MaintenanceMode).To(BeTrue())
		Expect(cfg.DebugMode).To(BeFalse())
		Expect(cfg.BackupRetention).To(Equal(30))
	})

	It("should backfill nested members", func() {
		raw := map[string]any{
			"passwordPolicy": map[string]any{"minLength": float64(12)},
		}

		cfg, err := config.Merge(pkgconfig.DefaultConfig(), raw)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.PasswordPolicy).To(Equal(pkgconfig.PasswordPolicy{
			MinLength:           12,
			RequireUppercase:    true,
			RequireNumbers:      true,
			RequireSpecialChars: false,
		}))
	})

	It("should treat null fields as missing", func() {
		raw := map[string]any{"smtpPort": nil, "version": nil}

		cfg, err := config.Merge(pkgconfig.DefaultConfig(), raw)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.SMTPPort).To(Equal(587))
		Expect(cfg.Version).To(Equal("1.0.0"))
	})

	It("should ignore unknown fields", func() {
		cfg, err := config.Merge(pkgconfig.DefaultConfig(), map[string]any{"theme": "dark"})
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg).To(Equal(pkgconfig.DefaultConfig()))
	})

	It("should fail on values of the wrong type", func() {
		_, err := config.Merge(pkgconfig.DefaultConfig(), map[string]any{"smtpPort": "many"})
		Expect(err).To(MatchError(config.ErrInvalidValue))
	})
})

var _ = Describe("Set", func() {
	var base pkgconfig.Config

	BeforeEach(func() {
		base = pkgconfig.DefaultConfig()
	})

	It("should replace a nested member and keep its siblings", func() {
		next, err := config.Set(base, "passwordPolicy.minLength", 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(next.PasswordPolicy.MinLength).To(Equal(10))
		Expect(next.PasswordPolicy.RequireUppercase).To(BeTrue())
		Expect(base.PasswordPolicy.MinLength).To(Equal(8))
	})

	It("should coerce strings", func() {
		next, err := config.Set(base, "maintenanceMode", "true")
		Expect(err).NotTo(HaveOccurred())
		Expect(next.MaintenanceMode).To(BeTrue())

		next, err = config.Set(next, "maxLoginAttempts", "3")
		Expect(err).NotTo(HaveOccurred())
		Expect(next.MaxLoginAttempts).To(Equal(3))
	})

	It("should reject unknown paths", func() {
		_, err := config.Set(base, "passwordPolicy.maxLength", 10)
		Expect(err).To(MatchError(config.ErrInvalidPath))

		_, err = config.Set(base, "theme", "dark")
		Expect(err).To(MatchError(config.ErrInvalidPath))
	})

	It("should reject values that do not fit the field", func() {
		_, err := config.Set(base, "smtpPort", "not-a-port")
		Expect(err).To(MatchError(config.ErrInvalidValue))
	})

	It("should accept whole numbers decoded from JSON", func() {
		next, err := config.Set(base, "passwordPolicy.minLength", float64(12))
		Expect(err).NotTo(HaveOccurred())
		Expect(next.PasswordPolicy.MinLength).To(Equal(12))
	})

	It("should reject fractional numbers for integer fields", func() {
		next, err := config.Set(base, "passwordPolicy.minLength", 10.9)
		Expect(err).To(MatchError(config.ErrInvalidValue))
		Expect(next).To(Equal(base))
	})

	It("should reject numbers for boolean fields", func() {
		_, err := config.Set(base, "maintenanceMode", 5)
		Expect(err).To(MatchError(config.ErrInvalidValue))

		_, err = config.Set(base, "debugMode", float64(1))
		Expect(err).To(MatchError(config.ErrInvalidValue))
	})

	It("should reject booleans for numeric fields", func() {
		_, err := config.Set(base, "smtpPort", true)
		Expect(err).To(MatchError(config.ErrInvalidValue))
	})
})

var _ = Describe("Apply", func() {
	It("should merge a nested group without dropping members", func() {
		next, err := config.Apply(pkgconfig.DefaultConfig(), map[string]any{
			"systemName":     "Clínica Sol",
			"passwordPolicy": map[string]any{"requireSpecialChars": true},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(next.SystemName).To(Equal("Clínica Sol"))
		Expect(next.PasswordPolicy.RequireSpecialChars).To(BeTrue())
		Expect(next.PasswordPolicy.MinLength).To(Equal(8))
	})

	It("should reject unknown nested keys", func() {
		_, err := config.Apply(pkgconfig.DefaultConfig(), map[string]any{
			"passwordPolicy": map[string]any{"history": 3},
		})
		Expect(err).To(MatchError(config.ErrInvalidPath))
	})
})

var _ = Describe("Paths", func() {
	It("should list groups and members", func() {
		paths := config.Paths()
		Expect(paths).To(ContainElements("passwordPolicy", "passwordPolicy.minLength", "smtpTLS"))
		Expect(config.IsKnownPath("passwordPolicy.requireNumbers")).To(BeTrue())
		Expect(config.IsKnownPath("security")).To(BeFalse())
	})
})

var _ = Describe("Lookup", func() {
	It("should return scalars and groups", func() {
		cfg := pkgconfig.DefaultConfig()

		Expect(config.Lookup(cfg, "passwordPolicy.minLength")).To(Equal(8))
		Expect(config.Lookup(cfg, "passwordPolicy")).To(HaveKeyWithValue("requireUppercase", true))
		Expect(config.Lookup(cfg, "backupFrequency")).To(Equal("daily"))
	})

	It("should reject unknown paths", func() {
		_, err := config.Lookup(pkgconfig.DefaultConfig(), "passwordPolicy.maxLength")
		Expect(err).To(MatchError(config.ErrInvalidPath))
	})
})

var _ = Describe("CategoryPatch", func() {
	It("should nest the security password rules", func() {
		patch, err := config.CategoryPatch(pkgconfig.CategorySecurity, map[string]any{
			"maxLoginAttempts":    3,
			"minLength":           10,
			"requireUppercase":    true,
			"requireNumbers":      false,
			"requireSpecialChars": true,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(patch).To(Equal(map[string]any{
			"maxLoginAttempts":                   3,
			"passwordPolicy.minLength":           10,
			"passwordPolicy.requireUppercase":    true,
			"passwordPolicy.requireNumbers":      false,
			"passwordPolicy.requireSpecialChars": true,
		}))
	})

	It("should prefix the email fields", func() {
		patch, err := config.CategoryPatch(pkgconfig.CategoryEmail, map[string]any{
			"host": "smtp.example.com",
			"port": "2525",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(patch).To(Equal(map[string]any{
			"smtpHost": "smtp.example.com",
			"smtpPort": 2525,
		}))
	})

	It("should reject fields of another category", func() {
		_, err := config.CategoryPatch(pkgconfig.CategorySystem, map[string]any{"minLength": 10})
		Expect(err).To(MatchError(config.ErrInvalidPath))
	})

	It("should reject unknown categories", func() {
		_, err := config.CategoryPatch(pkgconfig.Category("billing"), map[string]any{})
		Expect(err).To(MatchError(pkgconfig.ErrUnknownCategory))
	})

	It("should round-trip with CategoryFields", func() {
		cfg := pkgconfig.DefaultConfig()

		for _, category := range pkgconfig.Categories() {
			fields, err := config.CategoryFields(cfg, category)
			Expect(err).NotTo(HaveOccurred())

			patch, err := config.CategoryPatch(category, fields)
			Expect(err).NotTo(HaveOccurred())

			next, err := config.Apply(cfg, patch)
			Expect(err).NotTo(HaveOccurred())
			Expect(next).To(Equal(cfg))
		}
	})
})

var _ = Describe("Validator", func() {
	var v *config.Validator

	BeforeEach(func() {
		v = config.NewValidator()
	})

	It("should accept the defaults", func() {
		Expect(v.Validate(pkgconfig.DefaultConfig())).To(Succeed())
	})

	DescribeTable("rejections",
		func(mutate func(*pkgconfig.Config), want error) {
			cfg := pkgconfig.DefaultConfig()
			mutate(&cfg)

			err := v.Validate(cfg)
			Expect(err).To(MatchError(want))
			Expect(err).To(MatchError(config.ErrInvalidValue))
		},
		Entry("blank system name", func(c *pkgconfig.Config) { c.SystemName = "  " }, config.ErrEmptySystemName),
		Entry("bad version", func(c *pkgconfig.Config) { c.Version = "latest" }, config.ErrInvalidVersion),
		Entry("bad frequency", func(c *pkgconfig.Config) { c.BackupFrequency = "hourly" }, pkgconfig.ErrInvalidBackupFrequency),
		Entry("bad log level", func(c *pkgconfig.Config) { c.LogLevel = "TRACE" }, pkgconfig.ErrInvalidLogLevel),
		Entry("zero retention", func(c *pkgconfig.Config) { c.BackupRetention = 0 }, config.ErrOutOfRange),
		Entry("zero min length", func(c *pkgconfig.Config) { c.PasswordPolicy.MinLength = 0 }, config.ErrOutOfRange),
		Entry("port too large", func(c *pkgconfig.Config) { c.SMTPPort = 70000 }, config.ErrOutOfRange),
	)
	It("should repair only the invalid fields", func() {
		cfg := pkgconfig.DefaultConfig()
		cfg.SystemName = "Clínica Vida"
		cfg.SMTPPort = 70000
		cfg.LogLevel = "TRACE"
		cfg.PasswordPolicy.RequireSpecialChars = true

		repaired, reset := v.Repair(cfg)
		Expect(v.Validate(repaired)).To(Succeed())
		Expect(reset).To(ConsistOf("logLevel", "smtpPort"))
		Expect(repaired.SystemName).To(Equal("Clínica Vida"))
		Expect(repaired.SMTPPort).To(Equal(587))
		Expect(repaired.LogLevel).To(Equal(pkgconfig.LogLevelInfo))
		Expect(repaired.PasswordPolicy.RequireSpecialChars).To(BeTrue())
	})

	It("should leave a valid record untouched", func() {
		cfg := pkgconfig.DefaultConfig()
		cfg.DebugMode = true

		repaired, reset := v.Repair(cfg)
		Expect(reset).To(BeEmpty())
		Expect(repaired).To(Equal(cfg))
	})
})
