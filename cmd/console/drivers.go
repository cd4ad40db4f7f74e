package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"

	"gitlab.com/timkado/api/voice-agent-console/internal/model"
	"gitlab.com/timkado/api/voice-agent-console/internal/usecase"
)

func (a *app) cmdDrivers(ctx context.Context, args []string) error {
	subcmd := "list"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		subcmd, args = args[0], args[1:]
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	switch subcmd {
	case "list", "ls":
		fs := newFlagSet("drivers list")
		search := fs.String("search", "", "filter by name or phone")
		sort := fs.String("sort", string(usecase.SortCreatedDesc), "created_desc|created_asc|name_asc|name_desc")
		if err := fs.Parse(args); err != nil {
			return err
		}
		items, err := a.service.ListDrivers(ctx)
		if err != nil {
			return err
		}
		filtered, err := usecase.FilterDrivers(items, usecase.DriverQuery{Search: *search, Sort: usecase.SortOrder(*sort)})
		if err != nil {
			return err
		}
		renderDrivers(a.out, filtered)
		return nil

	case "show", "get":
		id, err := splitID(newFlagSet("drivers show"), args, "drivers show <id>")
		if err != nil {
			return err
		}
		d, err := a.service.GetDriver(ctx, id)
		if err != nil {
			return err
		}
		renderDrivers(a.out, []model.Driver{*d})
		return nil

	case "create", "add":
		fs := newFlagSet("drivers create")
		name := fs.String("name", "", "driver name")
		phone := fs.String("phone", "", "phone number, digits with optional leading +")
		if err := fs.Parse(args); err != nil {
			return err
		}
		d, err := a.service.CreateDriver(ctx, model.DriverCreate{Name: *name, PhoneNumber: *phone})
		if err != nil {
			return err
		}
		color.Green("Created driver %s (%s)\n", d.Name, d.ID)
		return nil

	case "update", "edit":
		fs := newFlagSet("drivers update")
		var name, phone optionalString
		fs.Var(&name, "name", "driver name")
		fs.Var(&phone, "phone", "phone number")
		id, err := splitID(fs, args, "drivers update <id> [-name N] [-phone P]")
		if err != nil {
			return err
		}
		d, err := a.service.UpdateDriver(ctx, id, model.DriverUpdate{Name: name.value, PhoneNumber: phone.value})
		if err != nil {
			return err
		}
		color.Green("Updated driver %s\n", d.ID)
		return nil

	case "delete", "rm", "remove":
		id, err := splitID(newFlagSet("drivers delete"), args, "drivers delete <id>")
		if err != nil {
			return err
		}
		if err := a.service.DeleteDriver(ctx, id); err != nil {
			return err
		}
		color.Green("Deleted driver %s\n", id)
		return nil

	default:
		return fmt.Errorf("unknown drivers subcommand: %s (use list, show, create, update, delete)", subcmd)
	}
}
