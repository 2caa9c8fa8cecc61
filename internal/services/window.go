package services

// TrimWindow 裁剪历史上下文并拼接新输入，构造模型输入序列。
// 超出maxTokens时从历史最旧端丢弃，只保留最近的token；
// 新输入本身超过maxTokens时历史全部丢弃，输入原样下发。
func TrimWindow(history, input []int, maxTokens int) []int {
	keep := len(history)
	if len(history)+len(input) > maxTokens {
		keep = maxTokens - len(input)
		if keep < 0 {
			keep = 0
		}
	}

	result := make([]int, 0, keep+len(input))
	result = append(result, history[len(history)-keep:]...)
	result = append(result, input...)
	return result
}
