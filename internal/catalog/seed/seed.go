// Package seed loads the demo catalog used by local environments.
package seed

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/catalog/domain"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/catalog/service"
	apperrors "github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/errors"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/money"
)

func floatPtr(f float64) *float64 { return &f }

// Products returns the demo catalog. Prices are in ARS.
func Products() []service.CreateProductInput {
	installmentAmount := money.New(9064.50, "ARS")
	freeShippingFrom := money.New(50000, "ARS")

	return []service.CreateProductInput{
		{
			Title:       "Termo Acero Inoxidable 1.4 Lts",
			Description: "Termo de acero inoxidable con tapa cebadora y manija, ideal para mate.",
			Brand:       "Lumilagro",
			Condition:   "new",
			Currency:    "ARS",
			Images: []domain.Image{
				{URL: "https://cdn.kiosko.example/termo-negro.jpg", AltText: "Termo negro", Position: 0},
				{URL: "https://cdn.kiosko.example/termo-verde.jpg", AltText: "Termo verde", Position: 1},
				{URL: "https://cdn.kiosko.example/termo-rosa.jpg", AltText: "Termo rosa", Position: 2},
			},
			Options: []domain.ConfigOption{
				{Name: "color", DisplayName: "Color", Values: []string{"Negro", "Verde", "Rosa"}},
			},
			Variants: []service.VariantInput{
				{
					SKU:         "TERMO-LUMI-14-NEGRO",
					Attributes:  domain.AttributeSet{{Name: "color", Value: "Negro"}},
					Price:       108774.05,
					CompareAt:   floatPtr(114499),
					Stock:       4,
					IsAvailable: true,
				},
				{
					SKU:         "TERMO-LUMI-14-VERDE",
					Attributes:  domain.AttributeSet{{Name: "color", Value: "Verde"}},
					Price:       112999.99,
					CompareAt:   floatPtr(119999),
					Stock:       10,
					IsAvailable: true,
				},
				{
					SKU:         "TERMO-LUMI-14-ROSA",
					Attributes:  domain.AttributeSet{{Name: "color", Value: "Rosa"}},
					Price:       115999.99,
					CompareAt:   floatPtr(124999),
					Stock:       7,
					IsAvailable: true,
				},
			},
			Installments: &domain.Installments{
				Quantity:     12,
				Amount:       installmentAmount,
				InterestFree: true,
			},
			FreeShippingFrom: &freeShippingFrom,
		},
		{
			Title:       "Mate Imperial Calabaza",
			Description: "Mate de calabaza curado con virola de alpaca.",
			Brand:       "La Matera",
			Condition:   "new",
			Currency:    "ARS",
			Options: []domain.ConfigOption{
				{Name: "virola", DisplayName: "Virola", Values: []string{"Alpaca", "Acero"}},
			},
			Variants: []service.VariantInput{
				{
					SKU:         "MATE-IMP-ALPACA",
					Attributes:  domain.AttributeSet{{Name: "virola", Value: "Alpaca"}},
					Price:       45999,
					Stock:       15,
					IsAvailable: true,
				},
				{
					SKU:         "MATE-IMP-ACERO",
					Attributes:  domain.AttributeSet{{Name: "virola", Value: "Acero"}},
					Price:       38999,
					Stock:       22,
					IsAvailable: true,
				},
			},
		},
		{
			Title:       "Yerba Mate Suave 1kg",
			Description: "Yerba mate elaborada con palo, secado tradicional.",
			Brand:       "Cachamate",
			Condition:   "new",
			Currency:    "ARS",
			Variants: []service.VariantInput{
				{
					SKU:         "YERBA-SUAVE-1KG",
					Attributes:  domain.AttributeSet{{Name: "presentacion", Value: "1kg"}},
					Price:       8599.50,
					Stock:       120,
					IsAvailable: true,
				},
			},
		},
	}
}

// Run creates the demo products, skipping any whose slug already exists.
func Run(ctx context.Context, svc *service.CatalogService, logger *slog.Logger) error {
	for _, input := range Products() {
		product, err := svc.CreateProduct(ctx, &input)
		if err != nil {
			if errors.Is(err, apperrors.ErrAlreadyExists) {
				logger.InfoContext(ctx, "seed product already present",
					slog.String("title", input.Title),
				)
				continue
			}
			return err
		}
		logger.InfoContext(ctx, "seed product created",
			slog.String("product_id", product.ID),
			slog.String("slug", product.Slug),
		)
	}
	return nil
}
