package textutil

import "strings"

// scriptPairs lists traditional/simplified character pairs. The first pair
// mentioning a simplified character decides its traditional form.
const scriptPairs = `
萬万 與与 專专 業业 東东 絲丝 兩两 嚴严 喪丧 個个 豐丰 臨临 為为 麗丽 舉举 麼么 義义
烏乌 樂乐 喬乔 習习 鄉乡 書书 買买 亂乱 爭争 於于 虧亏 雲云 亞亚 產产 畝亩 親亲 億亿
僅仅 從从 侖仑 倉仓 儀仪 們们 價价 眾众 衆众 優优 會会 傘伞 偉伟 傳传 傷伤 倫伦 偽伪
體体 餘余 傭佣 俠侠 侶侣 偵侦 側侧 僑侨 債债 傾倾 償偿 儲储 兒儿 兌兑 黨党 蘭兰 關关
興兴 養养 獸兽 內内 岡冈 冊册 寫写 軍军 農农 馮冯 衝冲 決决 況况 凍冻 淨净 準准 涼凉
減减 湊凑 凜凛 幾几 鳳凤 憑凭 凱凯 擊击 劃划 劉刘 則则 剛刚 創创 刪删 別别 劑剂 劍剑
劇剧 勸劝 辦办 務务 動动 勵励 勁劲 勞劳 勢势 勳勋 區区 醫医 華华 協协 單单 賣卖 盧卢
衛卫 卻却 廠厂 廳厅 歷历 厲厉 壓压 厭厌 縣县 參参 雙双 發发 變变 敘叙 疊叠 葉叶 號号
嘆叹 後后 嚇吓 呂吕 嗎吗 啟启 吳吴 員员 嗚呜 問问 啞哑 喚唤 嘩哗 嘯啸 圍围 園园 圓圆
國国 圖图 團团 聖圣 場场 壞坏 塊块 堅坚 壇坛 墳坟 墜坠 壘垒 壯壮 聲声 殼壳 處处 備备
頭头 誇夸 夾夹 奪夺 奮奋 獎奖 婦妇 媽妈 嬌娇 孫孙 學学 寧宁 寶宝 實实 寵宠 審审 憲宪
宮宫 對对 尋寻 導导 將将 爾尔 塵尘 嘗尝 層层 屬属 歲岁 豈岂 島岛 嶺岭 崗岗 幣币 帥帅
師师 帳帐 帶带 幫帮 幹干 廣广 莊庄 慶庆 廬庐 庫库 應应 廟庙 廢废 開开 異异 棄弃 張张
彌弥 彎弯 歸归 當当 錄录 徹彻 徑径 憶忆 懷怀 態态 總总 戀恋 惡恶 懸悬 驚惊 慘惨 懶懒
戲戏 戰战 戶户 撲扑 執执 擴扩 掃扫 揚扬 擾扰 撫抚 搶抢 護护 報报 擔担 擬拟 擁拥 攔拦
撥拨 擇择 掛挂 撈捞 損损 撿捡 換换 據据 擠挤 揮挥 數数 鬥斗 斬斩 斷断 無无 舊旧 時时
曠旷 晝昼 顯显 晉晋 曬晒 曉晓 暈晕 暫暂 術术 機机 殺杀 雜杂 權权 條条 來来 楊杨 極极
構构 槍枪 楓枫 標标 樹树 樣样 橋桥 檢检 樓楼 歡欢 殘残 毀毁 氣气 漢汉 湯汤 溝沟 沒没
潑泼 淚泪 潔洁 灑洒 濃浓 濤涛 濕湿 溫温 滅灭 燈灯 靈灵 災灾 爐炉 點点 煉炼 爛烂 熱热
燒烧 愛爱 牽牵 狀状 猶犹 獨独 獄狱 獵猎 貓猫 獻献 環环 現现 瑪玛 畫画 暢畅 療疗 瘋疯
盡尽 監监 盤盘 睜睁 礦矿 碼码 確确 禮礼 離离 種种 穩稳 窮穷 競竞 筆笔 築筑 簡简 糧粮
紀纪 紅红 約约 級级 純纯 紙纸 紛纷 細细 終终 組组 結结 給给 絕绝 統统 經经 綠绿 維维
網网 緊紧 線线 練练 編编 緣缘 織织 繼继 續续 羅罗 聯联 聽听 職职 腦脑 臉脸 艦舰 藝艺
節节 蘇苏 萊莱 蓋盖 蟲虫 蝦虾 補补 裝装 見见 規规 視视 覺觉 覽览 觀观 計计 訂订 認认
討讨 讓让 訓训 記记 講讲 許许 論论 設设 訪访 證证 評评 詞词 試试 話话 詳详 語语 說说
誰谁 課课 調调 談谈 請请 讀读 豬猪 貝贝 負负 財财 責责 賢贤 敗败 貨货 貴贵 費费 賀贺
資资 賽赛 贏赢 趕赶 趙赵 躍跃 車车 軌轨 轉转 輪轮 軟软 輕轻 載载 輸输 辭辞 邊边 達达
遷迁 過过 運运 還还 這这 進进 遠远 違违 連连 遲迟 適适 選选 遺遗 鄭郑 醬酱 釋释 鐵铁
針针 鋼钢 錢钱 錯错 鍵键 鎮镇 鏡镜 長长 門门 閃闪 閉闭 閒闲 間间 閱阅 闊阔 隊队 陽阳
陰阴 陣阵 階阶 際际 陸陆 險险 隱隐 隨随 難难 雞鸡 電电 霧雾 靜静 響响 頁页 頂顶 項项
順顺 須须 預预 領领 頻频 題题 顏颜 願愿 類类 風风 飛飞 飯饭 飲饮 館馆 馬马 駕驾 驗验
騎骑 驅驱 髮发 鬧闹 魚鱼 鮮鲜 鳥鸟 鳴鸣 鴨鸭 鷹鹰 鹽盐 麥麦 黃黄 齊齐 齒齿 龍龙 龜龟
復复
`

var (
	toSimplified  map[rune]rune
	toTraditional map[rune]rune
)

func init() {
	toSimplified = make(map[rune]rune, 512)
	toTraditional = make(map[rune]rune, 512)
	for _, pair := range strings.Fields(scriptPairs) {
		runes := []rune(pair)
		if len(runes) != 2 || runes[0] == runes[1] {
			continue
		}
		trad, simp := runes[0], runes[1]
		if _, ok := toSimplified[trad]; !ok {
			toSimplified[trad] = simp
		}
		if _, ok := toTraditional[simp]; !ok {
			toTraditional[simp] = trad
		}
	}
}

// ToSimplified maps traditional Chinese characters to simplified forms.
// Characters outside the table pass through unchanged.
func ToSimplified(value string) string {
	return mapRunes(value, toSimplified)
}

// ToTraditional maps simplified Chinese characters to traditional forms.
func ToTraditional(value string) string {
	return mapRunes(value, toTraditional)
}

func mapRunes(value string, table map[rune]rune) string {
	if value == "" {
		return value
	}
	changed := false
	for _, r := range value {
		if _, ok := table[r]; ok {
			changed = true
			break
		}
	}
	if !changed {
		return value
	}
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if mapped, ok := table[r]; ok {
			b.WriteRune(mapped)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
