package dentdir

import "strings"

// DefaultCategories are the business categories appended to a location to
// form search queries.
func DefaultCategories() []string {
	return []string{"diş kliniği", "diş hastanesi", "diş hekimi"}
}

// Planner expands a location into the ordered list of queries issued by
// the ingestion pipeline.
type Planner struct {
	// Categories are appended to every location. The first category is the
	// primary one used by PlanProvinces.
	Categories []string

	// Regions maps a normalized region name to its sub-districts. A location
	// naming a region is replaced by the cross product of its sub-districts
	// and the categories.
	Regions map[string]Region
}

// Region is a location with enumerated sub-districts.
type Region struct {
	Name      string
	Districts []string
}

// NewPlanner returns a Planner with the default categories and the
// İstanbul district expansion.
func NewPlanner() *Planner {
	istanbul := Region{Name: "İstanbul", Districts: IstanbulDistricts()}
	return &Planner{
		Categories: DefaultCategories(),
		Regions: map[string]Region{
			NormalizeName(istanbul.Name): istanbul,
		},
	}
}

// Plan returns the queries for a location. Whitespace-only input yields no
// queries.
func (p *Planner) Plan(location string) []string {
	location = strings.Join(strings.Fields(location), " ")
	if location == "" {
		return nil
	}

	if region, ok := p.Regions[NormalizeName(location)]; ok && len(region.Districts) > 0 {
		queries := make([]string, 0, len(region.Districts)*len(p.categories()))
		for _, district := range region.Districts {
			for _, category := range p.categories() {
				queries = append(queries, district+" "+region.Name+" "+category)
			}
		}
		return queries
	}

	queries := make([]string, 0, len(p.categories()))
	for _, category := range p.categories() {
		queries = append(queries, location+" "+category)
	}
	return queries
}

// PlanProvinces returns one query per Turkish province using the primary
// category.
func (p *Planner) PlanProvinces() []string {
	category := p.categories()[0]
	provinces := Provinces()
	queries := make([]string, 0, len(provinces))
	for _, province := range provinces {
		queries = append(queries, province+" "+category)
	}
	return queries
}

func (p *Planner) categories() []string {
	if len(p.Categories) == 0 {
		return DefaultCategories()
	}
	return p.Categories
}

// Provinces lists the 81 Turkish provinces in licence plate order.
func Provinces() []string {
	return []string{
		"Adana", "Adıyaman", "Afyonkarahisar", "Ağrı", "Amasya", "Ankara", "Antalya", "Artvin", "Aydın",
		"Balıkesir", "Bilecik", "Bingöl", "Bitlis", "Bolu", "Burdur", "Bursa", "Çanakkale", "Çankırı",
		"Çorum", "Denizli", "Diyarbakır", "Edirne", "Elazığ", "Erzincan", "Erzurum", "Eskişehir",
		"Gaziantep", "Giresun", "Gümüşhane", "Hakkari", "Hatay", "Isparta", "Mersin", "İstanbul", "İzmir",
		"Kars", "Kastamonu", "Kayseri", "Kırklareli", "Kırşehir", "Kocaeli", "Konya", "Kütahya", "Malatya",
		"Manisa", "Kahramanmaraş", "Mardin", "Muğla", "Muş", "Nevşehir", "Niğde", "Ordu", "Rize", "Sakarya",
		"Samsun", "Siirt", "Sinop", "Sivas", "Tekirdağ", "Tokat", "Trabzon", "Tunceli", "Şanlıurfa", "Uşak",
		"Van", "Yozgat", "Zonguldak", "Aksaray", "Bayburt", "Karaman", "Kırıkkale", "Batman", "Şırnak",
		"Bartın", "Ardahan", "Iğdır", "Yalova", "Karabük", "Kilis", "Osmaniye", "Düzce",
	}
}

// IstanbulDistricts lists the 39 districts of İstanbul.
func IstanbulDistricts() []string {
	return []string{
		"Adalar", "Arnavutköy", "Ataşehir", "Avcılar", "Bağcılar", "Bahçelievler", "Bakırköy",
		"Başakşehir", "Bayrampaşa", "Beşiktaş", "Beykoz", "Beylikdüzü", "Beyoğlu", "Büyükçekmece",
		"Çatalca", "Çekmeköy", "Esenler", "Esenyurt", "Eyüpsultan", "Fatih", "Gaziosmanpaşa",
		"Güngören", "Kadıköy", "Kağıthane", "Kartal", "Küçükçekmece", "Maltepe", "Pendik",
		"Sancaktepe", "Sarıyer", "Silivri", "Sultanbeyli", "Sultangazi", "Şile", "Şişli", "Tuzla",
		"Ümraniye", "Üsküdar", "Zeytinburnu",
	}
}
