package generator

import (
	"errors"
	"fmt"
	"strings"
)

type OptionGroup struct {
	Label  string   `json:"label" yaml:"label"`
	Values []string `json:"values" yaml:"values"`
}

type PriceRange struct {
	Min    int64  `json:"min" yaml:"min"`
	Max    int64  `json:"max" yaml:"max"`
	Step   int64  `json:"step" yaml:"step"`
	Suffix string `json:"suffix" yaml:"suffix"`
}

// Steps is the number of whole steps between Min and Max.
func (r PriceRange) Steps() int64 {
	if r.Step <= 0 || r.Max < r.Min {
		return 0
	}
	return (r.Max - r.Min) / r.Step
}

type Vocabulary struct {
	BrandPrefixes []string      `json:"brand_prefixes" yaml:"brand_prefixes"`
	StyleTags     []string      `json:"style_tags" yaml:"style_tags"`
	ProductTypes  []string      `json:"product_types" yaml:"product_types"`
	OptionGroups  []OptionGroup `json:"option_groups" yaml:"option_groups"`
	Price         PriceRange    `json:"price" yaml:"price"`
}

const DefaultCurrencySuffix = "원"

var (
	defaultBrandPrefixes = []string{
		"로맨틱 홈",
		"어반 클래식",
		"모노 스튜디오",
		"데일리 큐브",
		"살롱 무드",
		"리빙 아이디어",
		"코지 시그니처",
		"노르딕 브리즈",
	}
	defaultStyleTags = []string{
		"미니 원목",
		"시그니처 라탄",
		"소프트 패브릭",
		"모듈러 글라스",
		"데일리 메탈",
		"콤팩트 슬림",
		"라운드 엣지",
		"프리미엄 스톤",
	}
	defaultProductTypes = []string{
		"화장대",
		"와이드 서랍장",
		"포근 러그",
		"2인 패브릭 소파",
		"키친 아일랜드",
		"라운드 티테이블",
		"폴딩 수납장",
		"아치 장식 거울",
		"호텔식 침구 세트",
		"라운지 암체어",
	}
	defaultOptionGroups = []OptionGroup{
		{Label: "색상", Values: []string{"화이트", "라이트 베이지", "샌드 그레이", "다크 우드", "미드나잇 블루", "세이지 그린"}},
		{Label: "사이즈", Values: []string{"S", "M", "L", "Wide", "Grande", "Tall"}},
		{Label: "구성", Values: []string{"단품", "2EA 세트", "상판+거울", "본품+수납팩", "풀 패키지"}},
		{Label: "소재", Values: []string{"천연 원목", "스톤 세라믹", "E0 등급 보드", "마이크로 화이버", "내열 강화유리"}},
		{Label: "추가", Values: []string{"LED 라이트 포함", "소프트 클로징", "케이블 정리홀", "360° 회전", "방수 코팅"}},
	}
	defaultPriceRange = PriceRange{Min: 12000, Max: 950000, Step: 500, Suffix: DefaultCurrencySuffix}
)

// DefaultVocabulary returns a fresh copy of the built-in furniture tables.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		BrandPrefixes: defaultBrandPrefixes,
		StyleTags:     defaultStyleTags,
		ProductTypes:  defaultProductTypes,
		OptionGroups:  defaultOptionGroups,
		Price:         defaultPriceRange,
	}.Clone()
}

func (v Vocabulary) Clone() Vocabulary {
	out := Vocabulary{
		BrandPrefixes: append([]string(nil), v.BrandPrefixes...),
		StyleTags:     append([]string(nil), v.StyleTags...),
		ProductTypes:  append([]string(nil), v.ProductTypes...),
		OptionGroups:  make([]OptionGroup, 0, len(v.OptionGroups)),
		Price:         v.Price,
	}
	for _, group := range v.OptionGroups {
		out.OptionGroups = append(out.OptionGroups, OptionGroup{
			Label:  group.Label,
			Values: append([]string(nil), group.Values...),
		})
	}
	return out
}

func (v Vocabulary) Validate() error {
	var errs []error
	if err := validateTable("brand_prefixes", v.BrandPrefixes); err != nil {
		errs = append(errs, err)
	}
	if err := validateTable("style_tags", v.StyleTags); err != nil {
		errs = append(errs, err)
	}
	if err := validateTable("product_types", v.ProductTypes); err != nil {
		errs = append(errs, err)
	}
	if len(v.OptionGroups) == 0 {
		errs = append(errs, fmt.Errorf("option_groups: at least one group is required"))
	}
	seen := make(map[string]struct{}, len(v.OptionGroups))
	for i, group := range v.OptionGroups {
		label := strings.TrimSpace(group.Label)
		if label == "" {
			errs = append(errs, fmt.Errorf("option_groups[%d]: label is required", i))
			continue
		}
		if _, ok := seen[label]; ok {
			errs = append(errs, fmt.Errorf("option_groups[%d]: duplicate label %q", i, label))
		}
		seen[label] = struct{}{}
		if err := validateTable("option_groups["+label+"]", group.Values); err != nil {
			errs = append(errs, err)
		}
	}
	if v.Price.Step <= 0 {
		errs = append(errs, fmt.Errorf("price: step must be > 0"))
	}
	if v.Price.Max < v.Price.Min {
		errs = append(errs, fmt.Errorf("price: max %d is below min %d", v.Price.Max, v.Price.Min))
	}
	if v.Price.Min < 0 {
		errs = append(errs, fmt.Errorf("price: min must be >= 0"))
	}
	return errors.Join(errs...)
}

func validateTable(name string, values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("%s: at least one value is required", name)
	}
	for i, value := range values {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s[%d]: value is empty", name, i)
		}
	}
	return nil
}
