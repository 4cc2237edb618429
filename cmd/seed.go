package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jmehdipour/shift-scheduler/internal/bootstrap"
	"github.com/jmehdipour/shift-scheduler/internal/db"
	"github.com/jmehdipour/shift-scheduler/internal/logger"
	"github.com/jmehdipour/shift-scheduler/internal/model"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the primary store with demo data",
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1) load config
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		// 2) connect MySQL
		sqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, bootstrap.MySQLOpts(cfg))
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer sqlDB.Close()

		// writes go through the adapters so the outbox replicates them
		p := bootstrap.NewPrimary(sqlDB)
		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		existing, err := p.Employees.List(ctx)
		if err != nil {
			return fmt.Errorf("list employees: %w", err)
		}
		if len(existing) > 0 {
			logger.Log.Info("seed skipped, employees already present", zap.Int("employees", len(existing)))
			return nil
		}

		if err := seedDemo(ctx, p); err != nil {
			return err
		}
		logger.Log.Info("seed completed")
		return nil
	},
}

func seedDemo(ctx context.Context, p *bootstrap.Primary) error {
	employees := []model.Employee{
		{FirstName: "Lena", LastName: "Vogel", Email: "lena.vogel@example.com", Phone: "+4915110000001", Role: model.RoleCourier, Active: true},
		{FirstName: "Jonas", LastName: "Keller", Email: "jonas.keller@example.com", Phone: "+4915110000002", Role: model.RoleCourier, Active: true},
		{FirstName: "Mira", LastName: "Hahn", Email: "mira.hahn@example.com", Phone: "+4915110000003", Role: model.RoleCourier, Active: true},
		{FirstName: "Tobias", LastName: "Brandt", Email: "tobias.brandt@example.com", Phone: "+4915110000004", Role: model.RoleDispatcher, Active: true},
		{FirstName: "Admin", LastName: "User", Email: "admin@example.com", Phone: "+4915110000005", Role: model.RoleAdmin, Active: true},
	}
	bicycles := []model.Bicycle{
		{SerialNumber: "CB-1001", Model: "Cargo Long John", Status: model.BicycleAvailable},
		{SerialNumber: "CB-1002", Model: "Cargo Long John", Status: model.BicycleAvailable},
		{SerialNumber: "CB-1003", Model: "City E-Bike", Status: model.BicycleInService},
	}
	routes := []model.Route{
		{Name: "Altstadt", Description: "Old town loop", DistanceKm: 12.5, EstimatedMinutes: 75, Active: true},
		{Name: "Hafen", Description: "Harbour and warehouses", DistanceKm: 18, EstimatedMinutes: 95, Active: true},
		{Name: "Campus", Description: "University district", DistanceKm: 9.2, EstimatedMinutes: 50, Active: true},
	}

	var empIDs, bikeIDs, routeIDs []int64
	for i := range employees {
		e, err := p.Employees.Add(ctx, &employees[i])
		if err != nil {
			return fmt.Errorf("insert employee %q: %w", employees[i].Email, err)
		}
		if e.Role == model.RoleCourier {
			empIDs = append(empIDs, e.ID)
		}
	}
	for i := range bicycles {
		b, err := p.Bicycles.Add(ctx, &bicycles[i])
		if err != nil {
			return fmt.Errorf("insert bicycle %q: %w", bicycles[i].SerialNumber, err)
		}
		if b.Status == model.BicycleAvailable {
			bikeIDs = append(bikeIDs, b.ID)
		}
	}
	for i := range routes {
		r, err := p.Routes.Add(ctx, &routes[i])
		if err != nil {
			return fmt.Errorf("insert route %q: %w", routes[i].Name, err)
		}
		routeIDs = append(routeIDs, r.ID)
	}

	// one week starting next Monday
	today := time.Now().UTC().Truncate(24 * time.Hour)
	monday := today.AddDate(0, 0, (8-int(today.Weekday()))%7)
	if monday.Equal(today) {
		monday = monday.AddDate(0, 0, 7)
	}
	plan, err := p.ShiftPlans.Add(ctx, &model.ShiftPlan{
		Name:      "Week of " + monday.Format("2006-01-02"),
		StartDate: monday,
		EndDate:   monday.AddDate(0, 0, 4),
	})
	if err != nil {
		return fmt.Errorf("insert shift plan: %w", err)
	}

	// round-robin couriers over weekdays
	for day := 0; day < 5; day++ {
		for slot, empID := range empIDs {
			start := monday.AddDate(0, 0, day).Add(time.Duration(7+slot) * time.Hour)
			s := model.Shift{
				ShiftPlanID: &plan.ID,
				EmployeeID:  empID,
				RouteID:     &routeIDs[(day+slot)%len(routeIDs)],
				StartsAt:    start,
				EndsAt:      start.Add(8 * time.Hour),
				Status:      model.ShiftPlanned,
			}
			if len(bikeIDs) > 0 {
				s.BicycleID = &bikeIDs[(day+slot)%len(bikeIDs)]
			}
			if _, err := p.Shifts.Add(ctx, &s); err != nil {
				return fmt.Errorf("insert shift: %w", err)
			}
		}
	}
	return nil
}
