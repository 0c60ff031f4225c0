// Package infra implementa domain.LessonStore sobre a tabela lessons.
package infra
