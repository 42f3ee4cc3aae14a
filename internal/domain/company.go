package domain

import "strings"

// Attribute names of the leads (company) feature service and of the staged
// company records.
const (
	FieldObjectID           = "OBJECTID"
	FieldGlobalID           = "GlobalID"
	FieldCompanyID          = "id"
	FieldPortfolioID        = "carteiraId"
	FieldLatitude           = "latitude"
	FieldLongitude          = "longitude"
	FieldHighestRevenueDate = "highestRevenueDate"
	FieldAlertType          = "alertType"
	FieldServiceTime        = "serviceTimeMinutes"
	FieldDeliveryQuantity1  = "DeliveryQuantity_1"
	FieldDeliveryQuantity2  = "DeliveryQuantity_2"
	FieldExecutiveID        = "executiveId"
	FieldRevenue            = "revenue"
	FieldRouteable          = "routeable"
	FieldGeocoded           = "geocoded"

	// Schedules only contribute the company they point at.
	FieldScheduleCompanyID = "companyId"
)

// DeliveryQuantities derives the mutually exclusive delivery flags from the
// alert type: no alert sets DeliveryQuantity_1, an alert sets DeliveryQuantity_2.
//
// A blank string alert is ambiguous; it is treated as absent and reported so
// the caller can flag the record.
func DeliveryQuantities(alertType any) (q1, q2 any, ambiguous bool) {
	if s, ok := alertType.(string); ok && strings.TrimSpace(s) == "" {
		return 1, nil, true
	}
	if alertType == nil {
		return 1, nil, false
	}
	return nil, 1, false
}
