package assistant

import (
	"fmt"
	"strings"
)

// Fixed replies. Handlers fall back to these when a collaborator or every
// generation backend fails.
const (
	msgRecipeGenerationFailed = "AI 生成食譜時發生錯誤。"
	msgRecipeIndexMissing     = "食譜資料庫尚未建立索引。"
	msgRecipeNotLoaded        = "資料庫未載入。"
	msgAIUnavailable          = "AI 暫時無法回應。"
	msgIngredientsFailed      = "AI 思考食材中..."
	msgFortuneFailed          = "運勢生成器連線中..."
	msgSubstituteFailed       = "AI 查詢替代食材中..."
	msgTourGuideFailed        = "附近有不少好玩的景點喔！(AI 導遊暫時休息中)"
	msgNeedLocation           = "請告訴我你在哪個城市，或分享你的位置，我才能幫你找附近的景點喔！"
	msgNoPlaces               = "附近好像沒有特別著名的景點耶。"
	msgUnknownWeather         = "天氣未知"
	msgNoPreferences          = "尚未設定"

	greetingText = "你好 👋 我是你的生活管家！\n\n你可以試試：\n・天氣 台中\n・今天穿什麼\n・食譜 番茄炒蛋\n・冰箱只剩雞蛋\n・今日運勢\n・沒有醬油可以用什麼代替\n・附近有什麼好玩的"
)

// recipeSampleSize caps how many titles are offered as context when
// suggesting dishes from ingredients.
const recipeSampleSize = 30

// randomDescriptionRunes is how much of a description the random recipe
// teaser shows.
const randomDescriptionRunes = 50

func recipeNotFound(query string) string {
	return fmt.Sprintf("抱歉，我找不到跟「%s」相關的食譜。", query)
}

func weatherUnavailable(location string) string {
	return fmt.Sprintf("抱歉，我拿不到「%s」的天氣資訊。", location)
}

func recipeTutorialPrompt(dishJSON string) string {
	return fmt.Sprintf("你是專業大廚。請將此食譜資料：%s，整理成繁體中文教學。包含介紹、食材、步驟、小撇步。", dishJSON)
}

func randomRecipeText(name, description string) string {
	runes := []rune(description)
	if len(runes) > randomDescriptionRunes {
		runes = runes[:randomDescriptionRunes]
	}
	return fmt.Sprintf("🍳 推薦：%s\n%s...\n(想學做這道菜嗎？請輸入「食譜 %s」)", name, string(runes), name)
}

func ingredientsPrompt(ingredients string, titles []string) string {
	if len(titles) > recipeSampleSize {
		titles = titles[:recipeSampleSize]
	}
	return fmt.Sprintf(`你是聰明主廚。使用者有食材：【%s】。

請推薦 1~2 道適合的料理，並說明理由。
如果資料庫裡的菜 (%s...) 適合，優先推薦，並引導使用者查詢。
如果不適合，請發揮創意推薦簡單料理。`, ingredients, strings.Join(titles, "\n"))
}

func fortunePrompt(weather, mood string) string {
	return fmt.Sprintf(`你是貼心生活氣象台 AI。
今日天氣：%s。
使用者心情：%s。

請生成一份運勢報告 (繁體中文)，包含：
1. 今日情緒天氣
2. 美食吉籤
3. 穿搭提醒
4. 幸運小物`, weather, mood)
}

func substitutePrompt(target string) string {
	return fmt.Sprintf("使用者想知道【%s】的替代品。請列出 3 個最佳替代方案，並說明比例與口感差異。", target)
}

func tourGuidePrompt(places []Place) string {
	lines := make([]string, len(places))
	for i, p := range places {
		rating := p.Rating
		if rating == "" {
			rating = "無評分"
		}
		lines[i] = fmt.Sprintf("%d. %s (⭐%s)", i+1, p.Name, rating)
	}
	return fmt.Sprintf(`使用者附近有以下景點：
%s

請扮演一位「熱情活潑的在地導遊」：
1. 挑選 3 個值得去的地方。
2. 用生動語言介紹。
3. 加上 Emoji。`, strings.Join(lines, "\n"))
}

func clothingPrompt(weather, prefs string) string {
	return fmt.Sprintf("你是管家。天氣：%s。偏好：%s。請給穿搭建議。", weather, prefs)
}

func chatPrompt(text string) string {
	return fmt.Sprintf("你是貼心的生活管家。請用繁體中文簡短、友善地回覆使用者：%s", text)
}
