package domain

import "github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/money"

// Shipping method ids offered by the storefront.
const (
	ShippingMethodStandard = "standard"
	ShippingMethodExpress  = "express"
	ShippingMethodPickup   = "pickup"
)

// DefaultShippingMethods returns the methods offered for the given
// currency. Pickup is free.
func DefaultShippingMethods(currency string) []ShippingMethod {
	return []ShippingMethod{
		{
			ID:                    ShippingMethodStandard,
			Name:                  "Envío estándar",
			Description:           "Entrega a domicilio en 5 a 7 días hábiles",
			Price:                 money.New(9999, currency),
			EstimatedDeliveryDays: 5,
			Carrier:               "Correo Argentino",
		},
		{
			ID:                    ShippingMethodExpress,
			Name:                  "Envío express",
			Description:           "Entrega a domicilio en 48 horas",
			Price:                 money.New(19999, currency),
			EstimatedDeliveryDays: 2,
			Carrier:               "Andreani",
		},
		{
			ID:                    ShippingMethodPickup,
			Name:                  "Retiro en punto de entrega",
			Description:           "Sin costo, disponible en 24 horas",
			Price:                 money.Zero(currency),
			EstimatedDeliveryDays: 1,
		},
	}
}

// FindShippingMethod returns the method with the given id, or nil.
func FindShippingMethod(methods []ShippingMethod, id string) *ShippingMethod {
	for i := range methods {
		if methods[i].ID == id {
			return &methods[i]
		}
	}
	return nil
}
