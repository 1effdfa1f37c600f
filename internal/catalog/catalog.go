// Package catalog holds the read-only reference data of the storefront:
// cities, bus classes, facilities, payment methods, promo codes and route fares.
// Nothing here is mutated after init, so it is safe for concurrent reads.
package catalog

import "strings"

type City struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Province string `json:"province"`
}

type BusClass struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Multiplier float64 `json:"multiplier"`
	TotalSeats int     `json:"totalSeats"`
}

type Facility struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type PaymentOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type PaymentMethod struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Options []PaymentOption `json:"options"`
}

const (
	ClassEconomy   = "economy"
	ClassBusiness  = "business"
	ClassExecutive = "executive"

	FacilityAC = "ac"
)

var cities = []City{
	{ID: "jakarta", Name: "Jakarta", Province: "DKI Jakarta"},
	{ID: "bandung", Name: "Bandung", Province: "Jawa Barat"},
	{ID: "semarang", Name: "Semarang", Province: "Jawa Tengah"},
	{ID: "yogyakarta", Name: "Yogyakarta", Province: "DI Yogyakarta"},
	{ID: "surabaya", Name: "Surabaya", Province: "Jawa Timur"},
	{ID: "malang", Name: "Malang", Province: "Jawa Timur"},
	{ID: "solo", Name: "Solo", Province: "Jawa Tengah"},
	{ID: "cirebon", Name: "Cirebon", Province: "Jawa Barat"},
	{ID: "denpasar", Name: "Denpasar", Province: "Bali"},
}

var busClasses = []BusClass{
	{ID: ClassEconomy, Name: "Ekonomi", Multiplier: 1.0, TotalSeats: 48},
	{ID: ClassBusiness, Name: "Bisnis", Multiplier: 1.5, TotalSeats: 40},
	{ID: ClassExecutive, Name: "Eksekutif", Multiplier: 2.0, TotalSeats: 32},
}

var facilities = []Facility{
	{ID: FacilityAC, Name: "AC"},
	{ID: "wifi", Name: "WiFi"},
	{ID: "toilet", Name: "Toilet"},
	{ID: "usb", Name: "USB Charger"},
	{ID: "snack", Name: "Snack"},
	{ID: "blanket", Name: "Selimut"},
	{ID: "recliner", Name: "Kursi Recliner"},
	{ID: "entertainment", Name: "Hiburan"},
}

var paymentMethods = []PaymentMethod{
	{ID: "bank-transfer", Name: "Transfer Bank", Options: []PaymentOption{
		{ID: "bca", Name: "BCA"},
		{ID: "mandiri", Name: "Mandiri"},
		{ID: "bni", Name: "BNI"},
		{ID: "bri", Name: "BRI"},
	}},
	{ID: "e-wallet", Name: "E-Wallet", Options: []PaymentOption{
		{ID: "gopay", Name: "GoPay"},
		{ID: "ovo", Name: "OVO"},
		{ID: "dana", Name: "DANA"},
		{ID: "shopeepay", Name: "ShopeePay"},
	}},
	{ID: "credit-card", Name: "Kartu Kredit", Options: []PaymentOption{
		{ID: "visa", Name: "Visa"},
		{ID: "mastercard", Name: "Mastercard"},
	}},
	{ID: "retail", Name: "Gerai Retail", Options: []PaymentOption{
		{ID: "indomaret", Name: "Indomaret"},
		{ID: "alfamart", Name: "Alfamart"},
	}},
}

// promoCodes maps an uppercase code to its discount fraction.
var promoCodes = map[string]float64{
	"HEMAT10":  0.10,
	"CIPENG20": 0.20,
	"MUDIK15":  0.15,
	"BARU25":   0.25,
}

func Cities() []City {
	return append([]City(nil), cities...)
}

func BusClasses() []BusClass {
	return append([]BusClass(nil), busClasses...)
}

func Facilities() []Facility {
	return append([]Facility(nil), facilities...)
}

// PaymentMethods returns a deep copy so callers cannot reach the shared options.
func PaymentMethods() []PaymentMethod {
	methods := make([]PaymentMethod, len(paymentMethods))
	for i, m := range paymentMethods {
		methods[i] = m
		methods[i].Options = append([]PaymentOption(nil), m.Options...)
	}
	return methods
}

func CityByID(id string) (City, bool) {
	for _, c := range cities {
		if c.ID == id {
			return c, true
		}
	}
	return City{}, false
}

func BusClassByID(id string) (BusClass, bool) {
	for _, c := range busClasses {
		if c.ID == id {
			return c, true
		}
	}
	return BusClass{}, false
}

func FacilityByID(id string) (Facility, bool) {
	for _, f := range facilities {
		if f.ID == id {
			return f, true
		}
	}
	return Facility{}, false
}

// PaymentOptionByID resolves the two-level method/option choice.
func PaymentOptionByID(methodID, optionID string) (PaymentMethod, PaymentOption, bool) {
	for _, m := range paymentMethods {
		if m.ID != methodID {
			continue
		}
		for _, o := range m.Options {
			if o.ID == optionID {
				return m, o, true
			}
		}
		return PaymentMethod{}, PaymentOption{}, false
	}
	return PaymentMethod{}, PaymentOption{}, false
}

// LookupPromo is case-insensitive and returns the normalized code.
func LookupPromo(code string) (string, float64, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	fraction, ok := promoCodes[normalized]
	if !ok {
		return "", 0, false
	}
	return normalized, fraction, true
}
