// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package storage

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tomtom215/basket/internal/recommend"
)

type staticModel struct{}

func (staticModel) Name() string { return "static" }

func (staticModel) Train(context.Context, *recommend.InteractionMatrix, map[string]struct{}) (*recommend.Snapshot, error) {
	return nil, recommend.ErrInsufficientData
}

func (staticModel) Score(_ *recommend.Snapshot, userID string, _ int) ([]recommend.Scored, error) {
	return nil, &recommend.UnknownUserError{UserID: userID}
}

type emptyCatalog struct{}

func (emptyCatalog) ListProductIDs(context.Context) ([]string, error) { return nil, nil }

func (emptyCatalog) Exists(context.Context, string) (bool, error) { return false, nil }

func zerologNop() zerolog.Logger { return zerolog.Nop() }
