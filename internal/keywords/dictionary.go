// Package keywords provides dictionary-based skill matching and detection of
// quantified achievements in resume text.
package keywords

import "github.com/jonathan/resume-analyzer/internal/types"

// Category is a named keyword list.
type Category struct {
	Name     string
	Keywords []string
}

// Dictionary is an ordered set of keyword categories.
type Dictionary []Category

// Names returns the category names in order.
func (d Dictionary) Names() []string {
	names := make([]string, len(d))
	for i, c := range d {
		names[i] = c.Name
	}
	return names
}

// TechnicalDictionary returns the built-in technical skill taxonomy.
func TechnicalDictionary() Dictionary {
	return Dictionary{
		{Name: types.SkillProgrammingLanguages, Keywords: []string{
			"python", "java", "javascript", "typescript", "c++", "c#", "c", "go", "golang", "rust",
			"php", "ruby", "swift", "kotlin", "scala", "r", "matlab", "sql", "html",
			"css", "sass", "less", "shell", "bash", "powershell", "perl", "dart", "lua",
		}},
		{Name: types.SkillFrameworksLibraries, Keywords: []string{
			"react", "vue", "angular", "django", "flask", "fastapi", "spring", "nodejs", "node.js",
			"express", "nextjs", "nuxtjs", "laravel", "rails", "asp.net", ".net", "tensorflow",
			"pytorch", "keras", "scikit-learn", "pandas", "numpy", "opencv", "jquery",
			"bootstrap", "tailwind", "material-ui", "ant-design", "element-ui", "gin",
		}},
		{Name: types.SkillDatabases, Keywords: []string{
			"mysql", "postgresql", "postgres", "mongodb", "redis", "elasticsearch", "oracle",
			"sqlite", "cassandra", "dynamodb", "neo4j", "influxdb", "mariadb",
			"couchdb", "firebase", "supabase",
		}},
		{Name: types.SkillCloudPlatforms, Keywords: []string{
			"aws", "azure", "gcp", "google cloud", "alibaba cloud", "tencent cloud",
			"heroku", "vercel", "netlify", "digitalocean", "linode", "vultr", "cloudflare",
		}},
		{Name: types.SkillToolsSoftware, Keywords: []string{
			"docker", "kubernetes", "git", "github", "gitlab", "jenkins", "gitlab-ci",
			"github-actions", "ansible", "terraform", "vagrant", "jira", "confluence",
			"slack", "notion", "figma", "sketch", "photoshop", "illustrator",
			"postman", "insomnia", "swagger", "linux", "ubuntu", "centos", "windows",
			"rabbitmq", "kafka", "grpc",
		}},
		{Name: types.SkillMethodologies, Keywords: []string{
			"agile", "scrum", "kanban", "devops", "ci/cd", "tdd", "bdd", "microservices",
			"restful", "graphql", "api", "mvc", "mvvm", "solid", "design patterns",
			"clean architecture", "domain-driven design",
		}},
	}
}

// SoftSkillKeywords returns the built-in soft skill list (English and Chinese).
func SoftSkillKeywords() []string {
	return []string{
		"leadership", "teamwork", "communication", "problem solving", "critical thinking",
		"project management", "time management", "adaptability", "creativity", "innovation",
		"analytical thinking", "decision making", "negotiation", "presentation", "mentoring",
		"collaboration", "cross-functional", "stakeholder management", "customer service",
		"领导力", "团队合作", "沟通能力", "解决问题", "项目管理", "时间管理", "创新",
	}
}

// ResumeDictionary is the technical taxonomy followed by the soft skills category.
func ResumeDictionary() Dictionary {
	d := TechnicalDictionary()
	return append(d, Category{Name: types.SkillSoftSkills, Keywords: SoftSkillKeywords()})
}
