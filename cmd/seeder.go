package cmd

import (
	"context"
	"fmt"

	"github.com/frahmantamala/herasat/internal/app"
	"github.com/frahmantamala/herasat/internal/attachment"
	"github.com/frahmantamala/herasat/internal/casefile"
	"github.com/frahmantamala/herasat/internal/incident"
	"github.com/frahmantamala/herasat/internal/person"
	"github.com/spf13/cobra"
)

var clearData bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample people, a case and an incident for development and testing purposes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			if clearData {
				if err := a.ClearRecords(ctx, adminID(ctx, a)); err != nil {
					return err
				}
				fmt.Println("Existing records cleared")
			}
			return seedSamples(ctx, a)
		})
	},
}

func init() {
	seedCmd.Flags().BoolVar(&clearData, "clear", false, "Clear existing records before seeding")
}

func str(s string) *string { return &s }

// adminID returns the configured default admin's id, or "" when that account
// no longer exists.
func adminID(ctx context.Context, a *app.App) string {
	admin, err := a.Users.GetByUsername(ctx, a.Config.Security.DefaultAdmin.Username)
	if err != nil || admin == nil {
		return ""
	}
	return admin.ID
}

func seedSamples(ctx context.Context, a *app.App) error {
	actor := adminID(ctx, a)

	fileID, err := a.Attachments.Create(ctx, attachment.NewAttachment{
		FileName: "statement.txt",
		FileType: "text/plain; charset=utf-8",
		Data:     []byte("Witness statement recorded at the north gate."),
	}, actor)
	if err != nil {
		return fmt.Errorf("failed to seed attachment: %w", err)
	}

	samples := []person.Person{
		{
			FullName: "علی محمدی",
			Profile:  person.Profile{City: str("Tehran"), Phone: str("09120000001")},
			Details: person.StudentDetails{
				StudentNumber:  str("400123456"),
				Faculty:        str("Engineering"),
				Program:        str("Computer Engineering"),
				EnrollmentYear: str("1400"),
			},
			Attachments: []string{fileID},
		},
		{
			FullName: "زهرا احمدی",
			Details: person.StaffDetails{
				EmployeeNumber: str("E-2041"),
				Department:     str("Security"),
				Position:       str("Gate supervisor"),
			},
		},
		{
			FullName: "Dr. Reza Karimi",
			Details: person.FacultyDetails{
				Kind:           person.TypeFacultyHeyat,
				EmployeeNumber: str("F-118"),
				Rank:           str("Associate Professor"),
				Specialization: str("Structural Engineering"),
			},
		},
	}

	ids := make([]string, 0, len(samples))
	for _, p := range samples {
		id, err := a.People.Create(ctx, p, actor)
		if err != nil {
			return fmt.Errorf("failed to seed person %s: %w", p.FullName, err)
		}
		ids = append(ids, id)
		fmt.Printf("Seeded %s: %s\n", p.Type(), p.FullName)
	}

	if _, err := a.Cases.Create(ctx, casefile.NewCase{
		Title:          "Unauthorised dormitory access",
		Status:         casefile.StatusInProgress,
		Summary:        "Student reported entering the women's dormitory after hours.",
		RelatedPersons: ids[:2],
		Attachments:    []string{fileID},
	}, actor); err != nil {
		return fmt.Errorf("failed to seed case: %w", err)
	}
	fmt.Println("Seeded case")

	incidentID, err := a.Incidents.Create(ctx, incident.NewIncident{
		Title:           "North gate barrier damaged",
		Date:            "2024-05-12",
		Importance:      incident.ImportanceHigh,
		Description:     "Barrier arm found broken at 02:10.",
		InvolvedPersons: ids[1:2],
	}, actor)
	if err != nil {
		return fmt.Errorf("failed to seed incident: %w", err)
	}
	if actor != "" {
		if _, err := a.Incidents.AddUpdate(ctx, incidentID, "Maintenance ticket opened.", actor); err != nil {
			return fmt.Errorf("failed to seed incident update: %w", err)
		}
	}
	fmt.Println("Seeded incident")
	return nil
}
