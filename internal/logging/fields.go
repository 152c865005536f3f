package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// OrgFields 提供组织码维度的字段，供元数据同步日志复用。
func OrgFields(action, orgCode string) logrus.Fields {
	return logrus.Fields{
		"action":   action,
		"org_code": orgCode,
	}
}

// DownloadFields 提供批次下载日志的统一字段，tier 标记内容来源层。
func DownloadFields(orgCode, batchID, tier string, bytes int64) logrus.Fields {
	return logrus.Fields{
		"action":   "download",
		"org_code": orgCode,
		"batch_id": batchID,
		"tier":     tier,
		"bytes":    bytes,
	}
}
