package validator

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"gitlab.com/timkado/api/voice-agent-console/internal/model"
)

func init() {
	RegisterStructRule(testCallDriverRule, model.StartTestCallRequest{})
}

// testCallDriverRule requires either an existing driver id or a complete new driver.
func testCallDriverRule(sl validator.StructLevel) {
	req := sl.Current().Interface().(model.StartTestCallRequest)
	if strings.TrimSpace(req.DriverID) != "" {
		return
	}
	if strings.TrimSpace(req.DriverName) == "" {
		sl.ReportError(req.DriverName, "driver_name", "DriverName", "driver_required", "")
	}
	if strings.TrimSpace(req.DriverPhone) == "" {
		sl.ReportError(req.DriverPhone, "driver_phone", "DriverPhone", "driver_required", "")
	}
}
