package core

import "math/big"

// Rescue permutation over F_p with a state width of 4, used both as the
// decoder's program-hash sponge and as the Rescue-p128 byte hash. One round
// is two half-rounds: a forward S-box pass (x^3) followed by the MDS mix and
// the first constant injection, then an inverse S-box pass (x^(1/3)), the
// MDS mix and the second injection. Round constants repeat with period
// CycleLength so the schedule can be LDE-extended alongside the trace.
//
// The constant tables were generated offline: ARK entries are blake2b
// expansions of a fixed label, the MDS matrix is the 4x4 Cauchy matrix
// 1/(x_i + y_j) over x = 0..3, y = 4..7 (invertible by construction), and
// invAlpha is the inverse of 3 modulo p - 1.

const (
	// SpongeWidth is the number of field elements in the sponge state.
	SpongeWidth = 4

	// SpongeRate is the number of state elements absorbed per permutation
	// when the sponge is used as a byte hash.
	SpongeRate = 2

	// CycleLength is the period of the round-constant schedule; it also
	// fixes the alignment grid for the VM's control-flow operations.
	CycleLength = 16

	// NumHashRounds is the number of rounds applied per absorbed block when
	// the permutation runs as a standalone hash.
	NumHashRounds = 8
)

var invAlpha, _ = new(big.Int).SetString("226854911280625642308916371969163307691", 10)

var (
	// ARK1 and ARK2 hold the per-register round constants for the two half
	// rounds, indexed [register][step mod CycleLength].
	ARK1 = parseConstants2D(ark1Dec[:])
	ARK2 = parseConstants2D(ark2Dec[:])

	// MDS and InvMDS are the mixing matrix and its inverse.
	MDS    = parseMatrix(mdsDec[:])
	InvMDS = parseMatrix(imdsDec[:])
)

func parseConstants2D(rows [][16]string) [SpongeWidth][CycleLength]Element {
	var out [SpongeWidth][CycleLength]Element
	for i, row := range rows {
		for j, s := range row {
			out[i][j] = MustFromDecimal(s)
		}
	}
	return out
}

func parseMatrix(rows [][4]string) [SpongeWidth][SpongeWidth]Element {
	var out [SpongeWidth][SpongeWidth]Element
	for i, row := range rows {
		for j, s := range row {
			out[i][j] = MustFromDecimal(s)
		}
	}
	return out
}

// RescueRound advances the sponge state by one round using the constant
// schedule slot for the given step. The injection vector is added into the
// mid-state between the half rounds; the decoder uses it to absorb the
// opcode value and push operands.
func RescueRound(state *[SpongeWidth]Element, step int, injection [SpongeWidth]Element) {
	slot := step % CycleLength

	var cubed [SpongeWidth]Element
	for i := 0; i < SpongeWidth; i++ {
		cubed[i] = state[i].Square().Mul(state[i])
	}

	var mid [SpongeWidth]Element
	for i := 0; i < SpongeWidth; i++ {
		acc := ARK1[i][slot].Add(injection[i])
		for j := 0; j < SpongeWidth; j++ {
			acc = acc.Add(MDS[i][j].Mul(cubed[j]))
		}
		mid[i] = acc
	}

	var rooted [SpongeWidth]Element
	for i := 0; i < SpongeWidth; i++ {
		rooted[i] = mid[i].Exp(invAlpha)
	}

	for i := 0; i < SpongeWidth; i++ {
		acc := ARK2[i][slot]
		for j := 0; j < SpongeWidth; j++ {
			acc = acc.Add(MDS[i][j].Mul(rooted[j]))
		}
		state[i] = acc
	}
}

// RescueHash absorbs data into a fresh sponge two elements at a time,
// running NumHashRounds rounds per block, and squeezes the first two state
// words as a 32-byte digest. Input bytes are consumed in 16-byte
// little-endian chunks (zero padded) with the input length absorbed last.
func RescueHash(data []byte) [32]byte {
	var state [SpongeWidth]Element
	var noInjection [SpongeWidth]Element

	absorb := func(a, b Element) {
		state[0] = state[0].Add(a)
		state[1] = state[1].Add(b)
		for r := 0; r < NumHashRounds; r++ {
			RescueRound(&state, r, noInjection)
		}
	}

	chunk := func(offset int) Element {
		end := offset + ElementSize
		if end > len(data) {
			end = len(data)
		}
		if offset >= end {
			return Zero
		}
		return FromBytes(data[offset:end])
	}

	for offset := 0; offset < len(data); offset += 2 * ElementSize {
		absorb(chunk(offset), chunk(offset+ElementSize))
	}
	absorb(FromUint64(uint64(len(data))), Zero)

	var out [32]byte
	first := state[0].Bytes()
	second := state[1].Bytes()
	copy(out[:ElementSize], first[:])
	copy(out[ElementSize:], second[:])
	return out
}

var ark1Dec = [...][16]string{
	{
		"128130417722000165076590022691665606072",
		"264036416959667325737589183182769645671",
		"24972702401672922564065907962696475018",
		"69649317369384743039289047319062686282",
		"112510371686957597461116916248921018732",
		"327778744538007059392918447414932811439",
		"254161323382866302925115646152492173196",
		"279842632464132720999123615334155902999",
		"125998968945719795272228439929968203059",
		"28598141228300815549312308088122693281",
		"311346626498177760851608285152465142636",
		"241871757027646372468944702574333753284",
		"226430093102349563074126477800857639600",
		"317427622895309164731597189453373849192",
		"16873411966204983142027101334119801952",
		"103326500690767118078825297189398760999",
	},
	{
		"297056610675488895063042962434240139788",
		"27262103497814055360662842800547291290",
		"181487292809449674904183973744741030206",
		"21578583515869519721958053889492196379",
		"298938083974120367637807540664182040584",
		"40507710124033582043881564457221227020",
		"123802341733793730528276420805382551730",
		"274071964091020624514722352300797507854",
		"183526860615048536026784447406007094163",
		"271094630454705335742792258160968309506",
		"198081364866625954562005776442930053494",
		"255888657654013367745881201992707217065",
		"155295900755976612729933022805957742987",
		"256717049324877746287507111133550710103",
		"257643241825013069813113719525870382329",
		"194725194824523623681291068362976979801",
	},
	{
		"334205955711662797148740584742538320123",
		"172789461202247751596230287377870559549",
		"153708539021614708981100319365578817025",
		"244945340605967425463732518490348160819",
		"233877624288409893703766263166325590054",
		"95359120109226422725008657527311316251",
		"9663497849711790241232435501848549107",
		"111369050963666271771258471362691087520",
		"8846094990394588068166868295661780087",
		"124039240806560312686056814662709585942",
		"103220048433806328453845998192417761523",
		"162628934800377010466014988893370878325",
		"235016354766063029191501285337860558526",
		"332057594566813106715120547432648292760",
		"107589501466854026786050132294253842625",
		"67348639441812265628097280648566621628",
	},
	{
		"270832346774899633267697453735265416149",
		"167342319540890607877657158233609391938",
		"248830938715120951654921962285881910334",
		"69821892077593761310381098207068759683",
		"203802872668989000041454504082166353194",
		"82005542862204432687113162840527922139",
		"216086534797289044077441392647319400886",
		"268011540918179210985964801558145106511",
		"262307537989722389779043732847115855569",
		"318391184150501114071658535717369469118",
		"220399721890523956784193016794127875657",
		"207638927274463774346903280396329264363",
		"252523098726219791899135594704711362379",
		"61550781677148185393188694283416983783",
		"186608569132267458138347593982055826361",
		"199955141051775107046507866699973617218",
	},
}
var ark2Dec = [...][16]string{
	{
		"16619543251400346900784574428526453371",
		"338325411006531593681795357161612692503",
		"184507616103699910730740754303264664691",
		"140020601801947591456905660754790394035",
		"90038842657374681232209897477335326583",
		"191168109432679685437838456410223482585",
		"296008089700158641870189591957218692030",
		"71415725552015180554148939108100672127",
		"300907081042549290733943046790558471650",
		"16925586383364384299619494901386806949",
		"239750599703417933615062162847689744729",
		"150818080434176753917075419515272238828",
		"290018174481420527269439838707205983138",
		"141882500469987510735304232891232065277",
		"330982205890785539405742654685199397838",
		"26396383287487626689462333713533773008",
	},
	{
		"6792331143967402881879040389736845937",
		"55254399698845306535007167348732065964",
		"4477532412062570958172728792766017741",
		"209535261098206832237095643336969503467",
		"322259253872773620342872179486478299425",
		"185499674063903134220198057934122150854",
		"5337955431651399228420216484220865017",
		"87161269035941542761522413828728944361",
		"27585956787323650308982380563568880928",
		"140369235703062414311655422438432217373",
		"94380968323137883377593189278903250431",
		"85046285953050079021256933068542889088",
		"68108910262097152704815549189384185878",
		"68648449935334621584320139123833906073",
		"128308488514562755520979707999799024560",
		"113934779904720465471358119721477945669",
	},
	{
		"327551645079118390523777747759859030298",
		"24154321771207794399903155641293882899",
		"187060607603627208800616871424161857089",
		"13448121211164306598425353600281619862",
		"142763884023949443640102211580020384850",
		"72492751475214687567863702781589979469",
		"323740295584169841871569666991159617093",
		"140326321888389304672698719788311833361",
		"72392321200330104155073249374701629679",
		"274556440619454043031559925775513662585",
		"135248142492855366595651078504325831040",
		"195118636338033509070470976442431368723",
		"47043315926454847328807408296208589460",
		"98366280681368104827717897594281609174",
		"139018596128046454195330866338737261775",
		"253274391222058762856828929673379458386",
	},
	{
		"261607534117641500013631994519751669409",
		"161439093721505418566972419403996404707",
		"85142375253236987647526863036492181050",
		"256232676206627221917477934109292940625",
		"152969985309528332735914568392369273524",
		"143917865159832869699003813526343991906",
		"183435312431541921979414431529010977957",
		"17736215763902971392275483987354487571",
		"126388417151528658714856848456328008099",
		"249046808456930155098943850536545292888",
		"170488537193582555972875183294078854251",
		"239250215203608867715791545762745016442",
		"165905240396598340304601059792752368681",
		"89244243056094406845793934657497684808",
		"100263738306530954481674416724603207197",
		"95387839137164735145518367221330073125",
	},
}
var mdsDec = [...][4]string{
	{
		"255211775190703847597530918465308721153",
		"136112946768375385385349823181497984615",
		"56713727820156410577229092992290826923",
		"48611766702991209066196365421963565934",
	},
	{
		"136112946768375385385349823181497984615",
		"56713727820156410577229092992290826923",
		"48611766702991209066196365421963565934",
		"297747071055821155530452738209526841345",
	},
	{
		"56713727820156410577229092992290826923",
		"48611766702991209066196365421963565934",
		"297747071055821155530452738209526841345",
		"264664063160729916027069100630690525640",
	},
	{
		"48611766702991209066196365421963565934",
		"297747071055821155530452738209526841345",
		"264664063160729916027069100630690525640",
		"238197656844656924424362190567621473076",
	},
}
var imdsDec = [...][4]string{
	{
		"4900",
		"340282366920938463463374557953744938017",
		"35280",
		"340282366920938463463374557953744944737",
	},
	{
		"340282366920938463463374557953744938017",
		"117600",
		"340282366920938463463374557953744780097",
		"88200",
	},
	{
		"35280",
		"340282366920938463463374557953744780097",
		"285768",
		"340282366920938463463374557953744820417",
	},
	{
		"340282366920938463463374557953744944737",
		"88200",
		"340282366920938463463374557953744820417",
		"70560",
	},
}
