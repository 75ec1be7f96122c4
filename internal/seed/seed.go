// Package seed bootstraps a demo school for local development. It is behind
// the bootstrap.seed_demo_school config flag and never runs in production.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/classbridge/feeledger/internal/billing/domain"
	feeconfigdomain "github.com/classbridge/feeledger/internal/feeconfig/domain"
	studentdomain "github.com/classbridge/feeledger/internal/student/domain"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	demoAcademicYear = "2026/2027"
	demoCurrency     = "NGN"
)

var demoClasses = []string{"Primary 1", "Primary 2"}

var demoStudents = []struct {
	fullName          string
	classIndex        int
	onboardingBalance string
}{
	{"Adaeze Okafor", 0, "0"},
	{"Tunde Balogun", 0, "15000"},
	{"Chiamaka Eze", 1, "0"},
	{"Ibrahim Musa", 1, "0"},
}

// EnsureDemoSchool seeds one school site, its classes, students and fee
// configurations. Re-running is a no-op once students exist.
func EnsureDemoSchool(db *gorm.DB, genID *snowflake.Node) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&studentdomain.Student{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		schoolID := genID.Generate()
		siteID := genID.Generate()

		classes := make([]studentdomain.SchoolClass, 0, len(demoClasses))
		for _, name := range demoClasses {
			classes = append(classes, studentdomain.SchoolClass{
				ID:           genID.Generate(),
				SchoolSiteID: siteID,
				Name:         name,
				IsActive:     true,
			})
		}
		if err := tx.Create(&classes).Error; err != nil {
			return err
		}

		students := make([]studentdomain.Student, 0, len(demoStudents))
		for _, st := range demoStudents {
			balance, err := decimal.NewFromString(st.onboardingBalance)
			if err != nil {
				return fmt.Errorf("seed onboarding balance %q: %w", st.onboardingBalance, err)
			}
			students = append(students, studentdomain.Student{
				ID:                genID.Generate(),
				SchoolID:          schoolID,
				SchoolSiteID:      siteID,
				ClassID:           classes[st.classIndex].ID,
				FullName:          st.fullName,
				Status:            studentdomain.StatusActive,
				OnboardingBalance: balance,
			})
		}
		if err := tx.Create(&students).Error; err != nil {
			return err
		}

		dueDate := time.Now().UTC().AddDate(0, 1, 0)
		for _, class := range classes {
			lineItems := []billingdomain.FeeLineItem{
				{Determinant: "tuition", Description: "Tuition fee", Amount: decimal.NewFromInt(50000)},
				{Determinant: "development", Description: "Development levy", Amount: decimal.NewFromInt(5000)},
			}
			total := decimal.Zero
			for _, item := range lineItems {
				total = total.Add(item.Amount)
			}
			cfg := feeconfigdomain.FeeConfiguration{
				ID:           genID.Generate(),
				SchoolSiteID: siteID,
				ClassID:      class.ID,
				AcademicYear: demoAcademicYear,
				PeriodType:   billingdomain.PeriodTypeTerm,
				PeriodNumber: 1,
				LineItems:    lineItems,
				Total:        total,
				DueDate:      &dueDate,
				Currency:     demoCurrency,
			}
			if err := tx.Create(&cfg).Error; err != nil {
				return err
			}
		}

		return nil
	})
}
