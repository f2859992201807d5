package scoring

import (
	"strings"
	"time"
)

const (
	recentWeight  = 0.7
	staleWeight   = 0.3
	unknownWeight = 0.5
	recentYears   = 2
)

// National bodies match as substrings; every other tier matches the whole subject.
var nationalSubjectMarkers = []string{"国家", "国务院", "state council", "national"}

var subjectTiers = []struct {
	weight   float64
	subjects []string
}{
	{0.9, []string{
		"上市公司", "发行人", "金融机构", "商业银行", "证券公司", "保险公司", "银行业金融机构",
		"银行保险机构", "关键信息基础设施运营者", "内幕信息知情人", "内幕交易行为人", "操纵市场行为人",
		"listed company", "issuer", "financial institution", "commercial bank", "securities company",
		"insurance company", "critical information infrastructure operator",
	}},
	{0.8, []string{
		"企业集团", "中央企业", "国有企业", "供应链主体", "项目公司", "排放企业", "网络运营者", "信托公司",
		"征信机构", "支付机构", "私募基金管理人", "数据处理者", "个人信息处理者",
		"enterprise group", "central enterprise", "state-owned enterprise", "network operator",
		"trust company", "payment institution", "data processor", "personal information processor",
	}},
	{0.7, []string{
		"企业", "用人单位", "生产经营单位", "经营者", "网络交易经营者", "网络交易平台经营者", "生产企业",
		"出口商", "劳务派遣单位", "用工单位", "出口经营者", "进口经营者", "进出口经营者", "进出口企业",
		"出口企业", "建设单位", "施工单位", "承包单位", "特种设备使用单位", "特种设备生产单位",
		"电子商务经营者", "互联网信息服务提供者", "服务提供者", "经营机构", "快递企业", "承运人", "托运人",
		"排污单位", "危险废物产生单位", "回收拆解企业", "药品生产企业", "化妆品企业", "食品生产者",
		"生产者", "销售者", "制造商", "生产商", "供应商", "网络关键设备制造商", "app运营者", "特许人",
		"收购人", "广告主", "境内机构", "单位", "组织", "事故发生单位", "生产经营单位主要负责人",
		"enterprise", "employer", "operator", "producer", "seller", "manufacturer", "supplier",
		"service provider", "carrier", "organization",
	}},
	{0.6, []string{
		"劳动者", "从业人员", "职工", "工伤职工", "投资者", "纳税人", "纳税义务人", "持票人", "外国投资者",
		"worker", "employee", "investor", "taxpayer", "foreign investor",
	}},
}

var subjectWeights = func() map[string]float64 {
	out := make(map[string]float64)
	for _, tier := range subjectTiers {
		for _, s := range tier.subjects {
			out[s] = tier.weight
		}
	}
	return out
}()

// AuthorityWeight maps a regulation's applicable subject onto its tier weight.
func AuthorityWeight(subject string) float64 {
	s := strings.ToLower(strings.TrimSpace(subject))
	if s == "" {
		return unknownWeight
	}
	for _, marker := range nationalSubjectMarkers {
		if strings.Contains(s, marker) {
			return 1.0
		}
	}
	if w, ok := subjectWeights[s]; ok {
		return w
	}
	return unknownWeight
}

// RecencyWeight favours regulations created within two whole years of the
// behavior date. Either date missing yields 0.5.
func RecencyWeight(regulationCreatedAt, behaviorDate *time.Time) float64 {
	if regulationCreatedAt == nil || regulationCreatedAt.IsZero() || behaviorDate == nil || behaviorDate.IsZero() {
		return unknownWeight
	}
	days := int64(behaviorDate.Sub(*regulationCreatedAt) / (24 * time.Hour))
	if days/365 <= recentYears {
		return recentWeight
	}
	return staleWeight
}
