package http

import (
	"net/mail"
	"strings"

	"github.com/jmehdipour/shift-scheduler/internal/model"
	"github.com/jmehdipour/shift-scheduler/internal/util"
)

// maxShiftHours bounds both recorded hours and the planned shift length.
const maxShiftHours = 24

func checkEmployee(countryCode string) func(*model.Employee) error {
	return func(e *model.Employee) error {
		e.FirstName = strings.TrimSpace(e.FirstName)
		e.LastName = strings.TrimSpace(e.LastName)
		e.Email = strings.ToLower(strings.TrimSpace(e.Email))
		e.Phone = util.NormalizePhone(e.Phone, countryCode)

		if e.FirstName == "" || e.LastName == "" {
			return invalid("first_name and last_name are required")
		}
		if _, err := mail.ParseAddress(e.Email); err != nil {
			return invalid("invalid email")
		}
		if !util.ValidPhone(e.Phone) {
			return invalid("invalid phone")
		}
		role, ok := model.ParseEmployeeRole(string(e.Role))
		if !ok {
			return invalid("invalid role")
		}
		e.Role = role
		return nil
	}
}

func checkBicycle(b *model.Bicycle) error {
	b.SerialNumber = strings.TrimSpace(b.SerialNumber)
	b.Model = strings.TrimSpace(b.Model)
	if b.SerialNumber == "" {
		return invalid("serial_number is required")
	}
	if b.Status == "" {
		b.Status = model.BicycleAvailable
	}
	if !b.Status.Valid() {
		return invalid("invalid status")
	}
	return nil
}

func checkRoute(r *model.Route) error {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
	if r.Name == "" {
		return invalid("name is required")
	}
	if r.DistanceKm < 0 || r.EstimatedMinutes < 0 {
		return invalid("distance_km and estimated_minutes must not be negative")
	}
	return nil
}

func checkShiftPlan(p *model.ShiftPlan) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return invalid("name is required")
	}
	if p.StartDate.IsZero() || p.EndDate.IsZero() {
		return invalid("start_date and end_date are required")
	}
	if p.EndDate.Before(p.StartDate) {
		return invalid("end_date is before start_date")
	}
	return nil
}

func checkShift(s *model.Shift) error {
	if s.EmployeeID <= 0 {
		return invalid("employee_id is required")
	}
	if s.StartsAt.IsZero() || !s.EndsAt.After(s.StartsAt) {
		return invalid("ends_at must be after starts_at")
	}
	if s.ScheduledHours() > maxShiftHours {
		return invalid("shift is longer than 24h")
	}
	if s.HoursWorked != nil {
		if err := checkHours(*s.HoursWorked); err != nil {
			return err
		}
	}
	if s.SubstituteEmployeeID != nil && *s.SubstituteEmployeeID == s.EmployeeID {
		return invalid("substitute_employee_id equals employee_id")
	}
	if s.Status == "" {
		s.Status = model.ShiftPlanned
	}
	if !s.Status.Valid() {
		return invalid("invalid status")
	}
	return nil
}

func checkHours(h float64) error {
	if h <= 0 || h > maxShiftHours {
		return invalid("hours must be in (0, 24]")
	}
	return nil
}
