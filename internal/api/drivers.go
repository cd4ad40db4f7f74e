package api

import (
	"context"
	"net/http"
	"net/url"

	"gitlab.com/timkado/api/voice-agent-console/internal/model"
)

const driversPath = "/api/drivers"

// DriverClient talks to /api/drivers.
type DriverClient struct {
	c *Client
}

var _ DriverAPI = (*DriverClient)(nil)

// NewDriverClient creates a DriverClient on top of c.
func NewDriverClient(c *Client) *DriverClient {
	return &DriverClient{c: c}
}

func (d *DriverClient) List(ctx context.Context) ([]model.Driver, error) {
	var out []model.Driver
	if err := d.c.do(ctx, "drivers", http.MethodGet, driversPath, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *DriverClient) Get(ctx context.Context, id string) (*model.Driver, error) {
	var out model.Driver
	if err := d.c.do(ctx, "drivers", http.MethodGet, driversPath+"/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (d *DriverClient) Create(ctx context.Context, in model.DriverCreate) (*model.Driver, error) {
	var out model.Driver
	if err := d.c.do(ctx, "drivers", http.MethodPost, driversPath, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (d *DriverClient) Update(ctx context.Context, id string, in model.DriverUpdate) (*model.Driver, error) {
	var out model.Driver
	if err := d.c.do(ctx, "drivers", http.MethodPut, driversPath+"/"+url.PathEscape(id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (d *DriverClient) Delete(ctx context.Context, id string) error {
	return d.c.do(ctx, "drivers", http.MethodDelete, driversPath+"/"+url.PathEscape(id), nil, nil)
}
