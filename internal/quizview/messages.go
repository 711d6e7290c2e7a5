package quizview

import "strings"

// Messages are the display strings used by the view models.
type Messages struct {
	Loading          string
	Completed        string
	Correct          string
	Wrong            string
	LoadFailed       string
	SubmitFailed     string
	Unsupported      string
	Retry            string
	Submit           string
	Next             string
	EmptySlot        string
	PickPair         string
	ProgressTemplate string
}

var catalog = map[string]Messages{
	"ru": {
		Loading:          "Загрузка вопроса...",
		Completed:        "Тест завершён",
		Correct:          "Верно!",
		Wrong:            "Неверно",
		LoadFailed:       "Не удалось загрузить вопрос теста",
		SubmitFailed:     "Не удалось отправить ответ",
		Unsupported:      "Этот тип вопроса не поддерживается",
		Retry:            "Повторить",
		Submit:           "Проверить",
		Next:             "Далее",
		EmptySlot:        "перетащите ответ сюда",
		PickPair:         "Выберите пару",
		ProgressTemplate: "%d / %d",
	},
	"en": {
		Loading:          "Loading question...",
		Completed:        "Test finished",
		Correct:          "Correct!",
		Wrong:            "Wrong",
		LoadFailed:       "Could not load the test question",
		SubmitFailed:     "Could not send the answer",
		Unsupported:      "This question type is not supported",
		Retry:            "Retry",
		Submit:           "Check",
		Next:             "Next",
		EmptySlot:        "drop an answer here",
		PickPair:         "Pick a pair",
		ProgressTemplate: "%d / %d",
	},
}

const DefaultLanguage = "ru"

// MessagesFor returns the catalog for a language code such as "en" or
// "en_US.UTF-8", falling back to Russian.
func MessagesFor(lang string) Messages {
	code := strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(code, "_-."); i > 0 {
		code = code[:i]
	}
	if m, ok := catalog[code]; ok {
		return m
	}
	return catalog[DefaultLanguage]
}
