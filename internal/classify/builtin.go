package classify

import "github.com/poi-insight/internal/domain"

// BuiltinRuleset возвращает встроенный набор правил. Используется, когда
// внешний набор не задан или не прошёл проверку формы. Словарь первого
// уровня покрывает категории AMap-подобных выгрузок и распространённые
// англоязычные токены.
func BuiltinRuleset() *domain.ClassificationRuleset {
	return &domain.ClassificationRuleset{
		Name:     "builtin",
		Version:  "1",
		Groups:   domain.CanonicalGroups(),
		Priority: domain.CanonicalGroups(),
		Level1: map[string]string{
			// Категории AMap
			"餐饮服务":      domain.GroupFood,
			"购物服务":      domain.GroupRetail,
			"生活服务":      domain.GroupLife,
			"体育休闲服务":    domain.GroupEntertainment,
			"医疗保健服务":    domain.GroupMedical,
			"住宿服务":      domain.GroupLodging,
			"风景名胜":      domain.GroupTourism,
			"商务住宅":      domain.GroupResidence,
			"政府机构及社会团体": domain.GroupGovernment,
			"科教文化服务":    domain.GroupEducation,
			"交通设施服务":    domain.GroupTransport,
			"金融保险服务":    domain.GroupFinance,
			"公司企业":      domain.GroupCompany,
			"汽车服务":      domain.GroupAuto,
			"汽车销售":      domain.GroupAuto,
			"汽车维修":      domain.GroupAuto,
			"摩托车服务":     domain.GroupAuto,
			"道路附属设施":    domain.GroupTransport,
			"地名地址信息":    domain.GroupAddress,
			"公共设施":      domain.GroupPublic,
			"事件活动":      domain.GroupEntertainment,
			"室内设施":      domain.GroupPublic,

			// English tokens
			"restaurant":    domain.GroupFood,
			"cafe":          domain.GroupFood,
			"fast_food":     domain.GroupFood,
			"bar":           domain.GroupFood,
			"food":          domain.GroupFood,
			"catering":      domain.GroupFood,
			"shop":          domain.GroupRetail,
			"supermarket":   domain.GroupRetail,
			"mall":          domain.GroupRetail,
			"convenience":   domain.GroupRetail,
			"market":        domain.GroupRetail,
			"shopping":      domain.GroupRetail,
			"laundry":       domain.GroupLife,
			"hairdresser":   domain.GroupLife,
			"beauty":        domain.GroupLife,
			"post_office":   domain.GroupLife,
			"cinema":        domain.GroupEntertainment,
			"gym":           domain.GroupEntertainment,
			"stadium":       domain.GroupEntertainment,
			"sports":        domain.GroupEntertainment,
			"leisure":       domain.GroupEntertainment,
			"entertainment": domain.GroupEntertainment,
			"hospital":      domain.GroupMedical,
			"clinic":        domain.GroupMedical,
			"pharmacy":      domain.GroupMedical,
			"dentist":       domain.GroupMedical,
			"doctors":       domain.GroupMedical,
			"healthcare":    domain.GroupMedical,
			"hotel":         domain.GroupLodging,
			"hostel":        domain.GroupLodging,
			"motel":         domain.GroupLodging,
			"guest_house":   domain.GroupLodging,
			"lodging":       domain.GroupLodging,
			"attraction":    domain.GroupTourism,
			"viewpoint":     domain.GroupTourism,
			"park":          domain.GroupTourism,
			"scenic_spot":   domain.GroupTourism,
			"tourism":       domain.GroupTourism,
			"residential":   domain.GroupResidence,
			"apartment":     domain.GroupResidence,
			"apartments":    domain.GroupResidence,
			"townhall":      domain.GroupGovernment,
			"police":        domain.GroupGovernment,
			"government":    domain.GroupGovernment,
			"embassy":       domain.GroupGovernment,
			"school":        domain.GroupEducation,
			"university":    domain.GroupEducation,
			"college":       domain.GroupEducation,
			"kindergarten":  domain.GroupEducation,
			"library":       domain.GroupEducation,
			"museum":        domain.GroupEducation,
			"bus_station":   domain.GroupTransport,
			"subway":        domain.GroupTransport,
			"train_station": domain.GroupTransport,
			"airport":       domain.GroupTransport,
			"parking":       domain.GroupTransport,
			"transport":     domain.GroupTransport,
			"bank":          domain.GroupFinance,
			"atm":           domain.GroupFinance,
			"insurance":     domain.GroupFinance,
			"finance":       domain.GroupFinance,
			"company":       domain.GroupCompany,
			"office":        domain.GroupCompany,
			"fuel":          domain.GroupAuto,
			"car_repair":    domain.GroupAuto,
			"car_wash":      domain.GroupAuto,
			"car_dealer":    domain.GroupAuto,
			"toilets":       domain.GroupPublic,
			"toilet":        domain.GroupPublic,
			"address":       domain.GroupAddress,
			"place":         domain.GroupAddress,
			"street":        domain.GroupAddress,
		},
		Overrides: []domain.OverrideRule{
			// 商务住宅 охватывает и жильё, и офисные здания
			{Level1: "商务住宅", Substrings: []string{"写字楼", "商务楼", "办公"}, Group: domain.GroupCompany},
			// Музеи и выставочные залы интереснее как туристические объекты
			{Level1: "科教文化服务", Substrings: []string{"博物馆", "展览馆", "美术馆", "科技馆"}, Group: domain.GroupTourism},
			{Level1: "生活服务", Substrings: []string{"旅行社"}, Group: domain.GroupTourism},
			{Level1: "体育休闲服务", Substrings: []string{"度假", "疗养"}, Group: domain.GroupLodging},
			{Level1: "leisure", Substrings: []string{"resort"}, Group: domain.GroupLodging},
		},
	}
}
