package catalog

const (
	KeyboardID   = "p1"
	MouseID      = "p2"
	MonitorArmID = "p3"
	PouchID      = "p4"
	SpeakerID    = "p5"
)

// SeedProducts returns the fixed storefront assortment loaded at start-up.
func SeedProducts() []Product {
	return []Product{
		{ID: KeyboardID, Name: "버그 없애는 키보드", BasePrice: 10000, Stock: 50, DiscountPercent: 10},
		{ID: MouseID, Name: "생산성 폭발 마우스", BasePrice: 20000, Stock: 30, DiscountPercent: 15},
		{ID: MonitorArmID, Name: "거북목 탈출 모니터암", BasePrice: 30000, Stock: 20, DiscountPercent: 20},
		{ID: PouchID, Name: "에러 방지 노트북 파우치", BasePrice: 15000, Stock: 0, DiscountPercent: 5},
		{ID: SpeakerID, Name: "코딩할 때 듣는 Lo-Fi 스피커", BasePrice: 25000, Stock: 10, DiscountPercent: 25},
	}
}

// Seed returns a fresh catalog built from SeedProducts.
func Seed() *Catalog {
	c, err := New(SeedProducts()...)
	if err != nil {
		panic("catalog: invalid seed data: " + err.Error())
	}
	return c
}
