// Package fees считает распределение выручки между платформой и провайдером.
// Одна и та же функция используется журналом и дашбордом, чтобы результаты
// не расходились.
package fees

import "github.com/shopspring/decimal"

// PlatformRate — фиксированная доля платформы, 10%.
var PlatformRate = decimal.NewFromFloat(0.10)

// Split делит валовую сумму на прибыль платформы и долю провайдера.
// Прибыль платформы округляется до 2 знаков, доля провайдера считается
// вычитанием, поэтому сумма частей всегда равна gross без зазора округления.
func Split(gross decimal.Decimal) (platformProfit, providerTake decimal.Decimal) {
	platformProfit = gross.Mul(PlatformRate).Round(2)
	providerTake = gross.Sub(platformProfit)
	return platformProfit, providerTake
}
