package domain

type Barbershop struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Address     string   `json:"address"`
	Description string   `json:"description"`
	ImageURL    string   `json:"imageUrl"`
	Phones      []string `json:"phones"`
}

type Service struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	ImageURL     string `json:"imageUrl"`
	PriceInCents int64  `json:"priceInCents"`
	BarbershopID string `json:"barbershopId"`
}
