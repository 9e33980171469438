package extract

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/banreview/internal/model"
)

// BanListFirstRow matches the first row of a rendered ban list page.
const BanListFirstRow = `div[slot^="USERNAME0"]`

// BanList reads the ban records of a rendered ban list page.
// Rows are numbered slots USERNAME0/REASON0, USERNAME1/REASON1 and so on;
// reading stops at the first index where either slot is missing. Rows
// with an empty username are skipped.
func BanList(doc *goquery.Document) []model.BanRecord {
	var bans []model.BanRecord
	for i := 0; ; i++ {
		user := doc.Find(fmt.Sprintf(`div[slot="USERNAME%d"] a[href^="/user/"]`, i)).First()
		reason := doc.Find(fmt.Sprintf(`div[slot="REASON%d"]`, i)).First()
		if user.Length() == 0 || reason.Length() == 0 {
			return bans
		}
		ban, err := model.NewBanRecord(user.Text(), reason.Text())
		if err != nil {
			continue
		}
		bans = append(bans, ban)
	}
}
